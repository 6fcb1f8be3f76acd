package selection

import (
	"encoding/json"
	"maps"
	"net/url"
	"sort"
)

// Reserved filter keys shared with list query parameters.
const (
	KeySearch = "q"
	KeySort   = "sort"
	KeyDir    = "dir"
)

// Filter describes the search, sort and status criteria of a list query.
// Keys mirror URL query parameters (q, sort, dir, status, ...).
// Two filters are equal iff their canonical serialized forms match.
type Filter map[string]string

// FilterFromValues builds a Filter from URL query values, keeping only the given keys.
// PRE: none
// POST: empty values are dropped
func FilterFromValues(q url.Values, keys ...string) Filter {
	f := Filter{}
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			f[k] = v
		}
	}
	return f
}

// Key returns the canonical serialized form of the filter.
// Empty values are dropped so {"status": ""} and {} serialize identically.
func (f Filter) Key() string {
	clean := make(map[string]string, len(f))
	for k, v := range f {
		if v != "" {
			clean[k] = v
		}
	}
	// encoding/json writes map keys in sorted order.
	b, _ := json.Marshal(clean)
	return string(b)
}

// Equal reports whether two filters serialize identically.
func (f Filter) Equal(other Filter) bool {
	return f.Key() == other.Key()
}

// IsZero reports whether the filter matches every item.
func (f Filter) IsZero() bool {
	return f.Key() == "{}"
}

// Get returns the value for key, or "" if unset.
func (f Filter) Get(key string) string {
	return f[key]
}

// Search returns the free-text search term.
func (f Filter) Search() string {
	return f[KeySearch]
}

// With returns a copy of the filter with key set to value.
// An empty value removes the key.
func (f Filter) With(key, value string) Filter {
	out := f.Clone()
	if value == "" {
		delete(out, key)
		return out
	}
	out[key] = value
	return out
}

// Clone returns an independent copy of the filter.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	maps.Copy(out, f)
	return out
}

// Values converts the filter back into URL query values.
func (f Filter) Values() url.Values {
	q := url.Values{}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f[k] != "" {
			q.Set(k, f[k])
		}
	}
	return q
}
