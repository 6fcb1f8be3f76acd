package listutil

import (
	"net/url"
	"testing"

	"linkdash/internal/domain/selection"
)

func TestParseListParams(t *testing.T) {
	sortCols := []string{"alias", "clicks"}
	filterKeys := []string{"status", "owner"}
	tests := []struct {
		name    string
		q       url.Values
		page    int
		perPage int
		sort    string
		dir     string
		search  string
		filters map[string]string
	}{
		{"defaults", url.Values{}, 1, DefaultPerPage, "", "asc", "", map[string]string{}},
		{"explicit paging", url.Values{"page": {"3"}, "per_page": {"50"}}, 3, 50, "", "asc", "", map[string]string{}},
		{"per_page outside options", url.Values{"per_page": {"25"}}, 1, DefaultPerPage, "", "asc", "", map[string]string{}},
		{"negative page", url.Values{"page": {"-1"}}, 1, DefaultPerPage, "", "asc", "", map[string]string{}},
		{"sort desc", url.Values{"sort": {"alias"}, "dir": {"desc"}}, 1, DefaultPerPage, "alias", "desc", "", map[string]string{}},
		{"sort column not allowed", url.Values{"sort": {"password_hash"}}, 1, DefaultPerPage, "", "asc", "", map[string]string{}},
		{"injected dir", url.Values{"sort": {"clicks"}, "dir": {"DROP TABLE"}}, 1, DefaultPerPage, "clicks", "asc", "", map[string]string{}},
		{"search and filters", url.Values{"q": {"promo"}, "status": {"blocked"}, "unknown": {"x"}}, 1, DefaultPerPage, "", "asc", "promo",
			map[string]string{"status": "blocked"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseListParams(tt.q, sortCols, filterKeys)
			if p.Page != tt.page || p.PerPage != tt.perPage {
				t.Errorf("paging = %d/%d, want %d/%d", p.Page, p.PerPage, tt.page, tt.perPage)
			}
			if p.Sort != tt.sort || p.Dir != tt.dir {
				t.Errorf("sort = %q %q, want %q %q", p.Sort, p.Dir, tt.sort, tt.dir)
			}
			if p.Search != tt.search {
				t.Errorf("search = %q, want %q", p.Search, tt.search)
			}
			if len(p.Filters) != len(tt.filters) {
				t.Errorf("filters = %v, want %v", p.Filters, tt.filters)
			}
			for k, v := range tt.filters {
				if p.Filters[k] != v {
					t.Errorf("filter %s = %q, want %q", k, p.Filters[k], v)
				}
			}
		})
	}
}

// TestNewPageInfo verifies pagination metadata computation.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		total      int
		wantPages  int
		wantPage   int
		wantOffset int
	}{
		{"basic", 1, 20, 85, 5, 1, 0},
		{"page2", 2, 20, 85, 5, 2, 20},
		{"lastPage", 5, 20, 85, 5, 5, 80},
		{"pageBeyondTotal", 10, 20, 85, 5, 5, 80},
		{"emptyList", 1, 20, 0, 1, 1, 0},
		{"exactFit", 1, 10, 10, 1, 1, 0},
		{"zeroPerPage", 1, 0, 5, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if pi.TotalPages != tt.wantPages {
				t.Errorf("TotalPages: got %d, want %d", pi.TotalPages, tt.wantPages)
			}
			if pi.Page != tt.wantPage {
				t.Errorf("Page: got %d, want %d", pi.Page, tt.wantPage)
			}
			if pi.Offset() != tt.wantOffset {
				t.Errorf("Offset: got %d, want %d", pi.Offset(), tt.wantOffset)
			}
		})
	}
}

// TestParamsFromFilter verifies a view filter converts to list params and back.
func TestParamsFromFilter(t *testing.T) {
	f := selection.Filter{"status": "blocked", "q": "promo", "sort": "clicks", "dir": "desc", "bogus": "1"}
	p := ParamsFromFilter(f, 3, 50, []string{"alias", "clicks"}, []string{"status"})

	if p.Page != 3 || p.PerPage != 50 {
		t.Errorf("page params = %+v, want page 3 per_page 50", p.PageParams)
	}
	if p.Sort != "clicks" || p.Dir != "desc" {
		t.Errorf("sort params = %+v, want clicks desc", p.SortParams)
	}
	if p.Search != "promo" || p.Filters["status"] != "blocked" {
		t.Errorf("filter params = %+v", p.FilterParams)
	}

	want := selection.Filter{"status": "blocked", "q": "promo", "sort": "clicks", "dir": "desc"}
	if got := p.Filter(); !got.Equal(want) {
		t.Errorf("Filter() = %v, want %v", got, want)
	}
}
