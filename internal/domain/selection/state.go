// Package selection tracks a user's row selection over a paginated, filtered,
// server-backed list and turns it into a single bulk-action request.
//
// A selection is either an explicit set of row ids (with a snapshot of each
// row's status) or "every row matching a captured filter". The two are never
// combined.
package selection

import (
	"maps"
	"sort"
)

// Mode is the representation currently used by a selection.
type Mode int

const (
	// ModeExplicit selects an enumerated set of ids.
	ModeExplicit Mode = iota
	// ModeAllMatching selects every item matching a captured filter.
	ModeAllMatching
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	if m == ModeAllMatching {
		return "all_matching"
	}
	return "explicit"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is an immutable view of a selection.
// INVARIANT: explicit is empty whenever mode == ModeAllMatching
type State struct {
	mode     Mode
	explicit map[string]string
	snapshot Filter
}

// Mode returns the selection mode.
func (s State) Mode() Mode { return s.mode }

// Snapshot returns the filter captured when all-matching mode was entered.
// The second result is false in explicit mode.
func (s State) Snapshot() (Filter, bool) {
	if s.mode != ModeAllMatching {
		return nil, false
	}
	return s.snapshot.Clone(), true
}

// Len returns the number of explicitly selected ids.
func (s State) Len() int { return len(s.explicit) }

// IsEmpty reports whether nothing is selected.
func (s State) IsEmpty() bool {
	return s.mode == ModeExplicit && len(s.explicit) == 0
}

// Contains reports whether id is explicitly selected.
func (s State) Contains(id string) bool {
	_, ok := s.explicit[id]
	return ok
}

// Status returns the status snapshot taken when id was selected.
func (s State) Status(id string) (string, bool) {
	st, ok := s.explicit[id]
	return st, ok
}

// IDs returns the explicitly selected ids in sorted order.
func (s State) IDs() []string {
	ids := make([]string, 0, len(s.explicit))
	for id := range s.explicit {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StatusCounts tallies the explicit selection by status snapshot.
func (s State) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, st := range s.explicit {
		counts[st]++
	}
	return counts
}

func emptyState() State {
	return State{mode: ModeExplicit, explicit: map[string]string{}}
}

func (s State) clone() State {
	out := State{mode: s.mode, explicit: make(map[string]string, len(s.explicit))}
	maps.Copy(out.explicit, s.explicit)
	if s.snapshot != nil {
		out.snapshot = s.snapshot.Clone()
	}
	return out
}
