package api

import (
	"net/http"
	"strconv"

	"github.com/ccapconnect/dashboard/internal/table"
)

// tablePage is a rendered table page plus the echoed view state, so the
// client can rebuild its controls without tracking state separately.
type tablePage struct {
	table.Page
	Search string `json:"search"`
	Filter string `json:"filter"`
}

// applyTableParams drives a fresh View with the request's query string:
//
//	q:      search term
//	filter: active filter value ("all" when absent)
//	sort:   sort column key
//	order:  "asc" or "desc" (default asc when sort is present)
//	page:   1-based page number
//
// Order matters: search and filter reset the page, an explicit page
// parameter is applied last so it wins.
func applyTableParams(v *table.View, r *http.Request) {
	q := r.URL.Query()

	if term := q.Get("q"); term != "" {
		v.SetSearch(term)
	}
	if filter := q.Get("filter"); filter != "" {
		v.SetFilter(filter)
	}

	if key := q.Get("sort"); key != "" {
		order := table.Ascending
		if q.Get("order") == "desc" {
			order = table.Descending
		}
		// ToggleSort adopts an unfamiliar key ascending and flips a
		// familiar one, so any target state is at most two toggles away.
		if v.SortKey() != key {
			v.ToggleSort(key)
		}
		if v.SortKey() == key && v.SortOrder() != order {
			v.ToggleSort(key)
		}
	}

	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			v.SetPage(n)
		}
	}
}

// renderTable runs the view pipeline and writes the page as JSON.
func renderTable(w http.ResponseWriter, v *table.View) {
	writeJSON(w, http.StatusOK, tablePage{
		Page:   v.Render(),
		Search: v.SearchTerm(),
		Filter: v.ActiveFilter(),
	})
}
