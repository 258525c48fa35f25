package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AllFilter is the filter value meaning "no filter".
const AllFilter = "all"

// pageWindow is the number of page buttons shown around the current page.
const pageWindow = 3

// View binds a Config to a row collection and owns the mutable view state:
// search term, active filter, sort key/order and current page. A View is
// not safe for concurrent use; each table instance owns exactly one.
type View struct {
	cfg  Config
	rows []Row

	searchTerm   string
	activeFilter string
	sortKey      string
	sortOrder    SortOrder
	currentPage  int
}

// New validates cfg and returns a View over rows with default state:
// empty search, "all" filter, the configured default sort and page 1.
func New(cfg Config, rows []Row) (*View, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &View{
		cfg:          cfg,
		rows:         rows,
		activeFilter: AllFilter,
		sortKey:      cfg.DefaultSortKey,
		sortOrder:    cfg.DefaultSortOrder,
		currentPage:  1,
	}, nil
}

// SetRows replaces the row collection, e.g. after a re-fetch. The current
// page is re-clamped against the new filtered count; all other view state
// is preserved.
func (v *View) SetRows(rows []Row) {
	v.rows = rows
	v.SetPage(v.currentPage)
}

// SetSearch updates the search term and resets to page 1.
func (v *View) SetSearch(term string) {
	v.searchTerm = term
	v.currentPage = 1
}

// SetFilter updates the active filter, resets to page 1 and notifies the
// configured callback, if any. An empty value selects "all".
func (v *View) SetFilter(value string) {
	if value == "" {
		value = AllFilter
	}
	v.activeFilter = value
	v.currentPage = 1
	if v.cfg.OnFilterChange != nil {
		v.cfg.OnFilterChange(value)
	}
}

// ToggleSort flips the direction when key is already the sort key,
// otherwise adopts key ascending. Either way the page resets to 1. It is a
// no-op when the table is not sortable or the column is not marked
// sortable.
func (v *View) ToggleSort(key string) {
	if !v.cfg.Sortable || !v.cfg.sortableColumn(key) {
		return
	}
	if v.sortKey == key {
		if v.sortOrder == Ascending {
			v.sortOrder = Descending
		} else {
			v.sortOrder = Ascending
		}
	} else {
		v.sortKey = key
		v.sortOrder = Ascending
	}
	v.currentPage = 1
}

// SetPage clamps n into [1, totalPages] and makes it current. Total pages
// is never below 1, even for an empty filtered set.
func (v *View) SetPage(n int) {
	total := v.totalPages(len(v.filtered()))
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	v.currentPage = n
}

// State accessors, read-only to callers.

func (v *View) SearchTerm() string   { return v.searchTerm }
func (v *View) ActiveFilter() string { return v.activeFilter }
func (v *View) SortKey() string      { return v.sortKey }
func (v *View) SortOrder() SortOrder { return v.sortOrder }
func (v *View) CurrentPage() int     { return v.currentPage }

// Pagination is the control-rendering contract for one rendered page.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int   `json:"totalItems"`
	RangeStart  int   `json:"rangeStart"`
	RangeEnd    int   `json:"rangeEnd"`
	HasPrev     bool  `json:"hasPrev"`
	HasNext     bool  `json:"hasNext"`
	PageNumbers []int `json:"pageNumbers"`
}

// Page is the fully derived output of one pipeline run.
type Page struct {
	Rows       []Row       `json:"rows"`
	Pagination Pagination  `json:"pagination"`
	SortKey    string      `json:"sortKey,omitempty"`
	SortOrder  SortOrder   `json:"sortOrder,omitempty"`
	Empty      *EmptyState `json:"empty,omitempty"`
}

// Render runs the pipeline (search, filter, sort, paginate, in that
// order) and returns the derived page. The source collection is never
// mutated; sorting copies.
func (v *View) Render() Page {
	filtered := v.filtered()

	if v.cfg.Sortable && v.sortKey != "" {
		sorted := make([]Row, len(filtered))
		copy(sorted, filtered)
		sort.SliceStable(sorted, func(i, j int) bool {
			a := v.cfg.resolve(sorted[i], v.sortKey)
			b := v.cfg.resolve(sorted[j], v.sortKey)
			cmp := compareValues(a, b)
			if v.sortOrder == Descending {
				return cmp > 0
			}
			return cmp < 0
		})
		filtered = sorted
	}

	n := len(filtered)
	total := v.totalPages(n)
	page := v.currentPage
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * v.cfg.PageSize
	end := start + v.cfg.PageSize
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	slice := filtered[start:end]

	p := Page{
		Rows: slice,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  total,
			TotalItems:  n,
			HasPrev:     page > 1,
			HasNext:     page < total,
			PageNumbers: pageNumbers(page, total),
		},
	}
	if n > 0 {
		p.Pagination.RangeStart = start + 1
		p.Pagination.RangeEnd = end
	}
	if v.cfg.Sortable && v.sortKey != "" {
		p.SortKey = v.sortKey
		p.SortOrder = v.sortOrder
	}
	if len(slice) == 0 && v.cfg.Empty != nil {
		p.Empty = v.cfg.Empty
	}
	return p
}

// filtered applies the search and filter stages in order.
func (v *View) filtered() []Row {
	out := make([]Row, 0, len(v.rows))
	for _, row := range v.rows {
		if !v.matchesSearch(row) {
			continue
		}
		if !v.matchesFilter(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// matchesSearch retains a row when no search keys are configured, the term
// is empty, or any configured key's lowercase string form contains the
// lowercase term as a substring.
func (v *View) matchesSearch(row Row) bool {
	if len(v.cfg.SearchKeys) == 0 || v.searchTerm == "" {
		return true
	}
	term := strings.ToLower(v.searchTerm)
	for _, key := range v.cfg.SearchKeys {
		val := v.cfg.resolve(row, key)
		if val == nil {
			continue
		}
		if strings.Contains(strings.ToLower(stringify(val)), term) {
			return true
		}
	}
	return false
}

// matchesFilter applies the configured filter rule when a non-"all" filter
// is active and options were supplied.
func (v *View) matchesFilter(row Row) bool {
	if v.activeFilter == AllFilter || len(v.cfg.FilterOptions) == 0 {
		return true
	}

	rule := v.cfg.FilterRule
	if rule == nil {
		rule = &FilterRule{Kind: FilterFieldEquals, Field: "status"}
	}

	switch rule.Kind {
	case FilterBoolEquals:
		want := v.activeFilter == rule.TruthyValue
		got, ok := row[rule.Field].(bool)
		return ok && got == want
	case FilterMembership:
		members := rule.Sets[v.activeFilter]
		val := stringify(row[rule.Field])
		for _, m := range members {
			if val == m {
				return true
			}
		}
		return false
	default:
		return stringify(row[rule.Field]) == v.activeFilter
	}
}

// totalPages is max(1, ceil(n / pageSize)).
func (v *View) totalPages(n int) int {
	total := (n + v.cfg.PageSize - 1) / v.cfg.PageSize
	if total < 1 {
		total = 1
	}
	return total
}

// pageNumbers returns a window of up to pageWindow page numbers centered on
// current, clamped so it never extends past [1, total].
func pageNumbers(current, total int) []int {
	start := current - pageWindow/2
	if start < 1 {
		start = 1
	}
	end := start + pageWindow - 1
	if end > total {
		end = total
		if s := end - pageWindow + 1; s >= 1 {
			start = s
		} else {
			start = 1
		}
	}
	nums := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		nums = append(nums, i)
	}
	return nums
}

// compareValues orders two row values: equal → 0, string pairs
// lexicographically, times chronologically, numbers numerically, anything
// else by the lexicographic order of its string coercion.
func compareValues(a, b any) int {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs)
	}

	at, aIsTime := a.(time.Time)
	bt, bIsTime := b.(time.Time)
	if aIsTime && bIsTime {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}

	af, aIsNum := toFloat(a)
	bf, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(stringify(a), stringify(b))
}

// toFloat coerces the numeric types that survive JSON decoding and the
// common Go integer widths.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// stringify is the string coercion used by search and the comparator
// fallback.
func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}
