package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/table"
	"github.com/ccapconnect/dashboard/internal/upstream"
	"github.com/go-chi/chi/v5"
)

// announcementsHandler serves program announcements. Reads are shared by
// both roles; writes are admin-only and routed accordingly.
type announcementsHandler struct {
	client *upstream.Client
}

func newAnnouncementsHandler(client *upstream.Client) *announcementsHandler {
	return &announcementsHandler{client: client}
}

func announcementTableConfig() table.Config {
	return table.Config{
		Columns: []table.Column{
			{Key: "title", Header: "Title", Sortable: true},
			{Key: "body", Header: "Announcement"},
			{Key: "created_at", Header: "Posted", Sortable: true},
		},
		SearchKeys:       []string{"title", "body"},
		PageSize:         table.DefaultPageSize,
		Sortable:         true,
		DefaultSortKey:   "created_at",
		DefaultSortOrder: table.Descending,
		Empty: &table.EmptyState{
			Title:       "No announcements yet",
			Description: "Program updates will appear here.",
		},
	}
}

// List handles GET /api/announcements.
func (h *announcementsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	records, err := h.client.ListAnnouncements(r.Context(), p.Token)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row(rec))
	}

	view, err := table.New(announcementTableConfig(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build announcement view")
		return
	}
	applyTableParams(view, r)
	renderTable(w, view)
}

func validateAnnouncement(in *upstream.AnnouncementInput) string {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if in.Title == "" {
		return "title is required"
	}
	if in.Body == "" {
		return "body is required"
	}
	return ""
}

// Create handles POST /api/admin/announcements.
func (h *announcementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req upstream.AnnouncementInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if msg := validateAnnouncement(&req); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", msg)
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	created, err := h.client.CreateAnnouncement(r.Context(), p.Token, req)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "create_announcement", "announcement", fmt.Sprintf("%v", created["id"]))
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/admin/announcements/{id}.
func (h *announcementsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "announcement id is required")
		return
	}

	var req upstream.AnnouncementInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if msg := validateAnnouncement(&req); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", msg)
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	updated, err := h.client.UpdateAnnouncement(r.Context(), p.Token, id, req)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "update_announcement", "announcement", id)
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/announcements/{id}.
func (h *announcementsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "announcement id is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	if err := h.client.DeleteAnnouncement(r.Context(), p.Token, id); err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "delete_announcement", "announcement", id)
	w.WriteHeader(http.StatusNoContent)
}
