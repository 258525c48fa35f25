package api

import (
	"net/http"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/table"
	"github.com/ccapconnect/dashboard/internal/upstream"
)

// postsHandler serves the community feed of student posts. The feed is
// read-only through the dashboard; posting happens in the mobile app.
type postsHandler struct {
	client *upstream.Client
}

func newPostsHandler(client *upstream.Client) *postsHandler {
	return &postsHandler{client: client}
}

func postTableConfig() table.Config {
	return table.Config{
		Columns: []table.Column{
			{Key: "author_name", Header: "Author", Sortable: true},
			{Key: "content", Header: "Post"},
			{Key: "like_count", Header: "Likes", Sortable: true, Align: table.AlignRight},
			{Key: "created_at", Header: "Posted", Sortable: true},
		},
		SearchKeys: []string{"author_name", "content"},
		FilterOptions: []table.FilterOption{
			{Value: "current", Label: "Current students"},
			{Value: "alumni", Label: "Alumni"},
		},
		// Posts are filtered by the author's stage at posting time; the
		// "current"/"alumni" split groups the underlying buckets.
		FilterRule: &table.FilterRule{
			Kind:  table.FilterMembership,
			Field: "author_bucket",
			Sets: map[string][]string{
				"current": {"Pre-Apprentice", "Apprentice"},
				"alumni":  {"Completed Pre-Apprentice", "Completed Apprentice"},
			},
		},
		PageSize:         table.DefaultPageSize,
		Sortable:         true,
		DefaultSortKey:   "created_at",
		DefaultSortOrder: table.Descending,
		Empty: &table.EmptyState{
			Title:       "No posts yet",
			Description: "Student posts from the community feed will appear here.",
		},
	}
}

// List handles GET /api/posts.
func (h *postsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	records, err := h.client.ListPosts(r.Context(), p.Token)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row(rec))
	}

	view, err := table.New(postTableConfig(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build post view")
		return
	}
	applyTableParams(view, r)
	renderTable(w, view)
}
