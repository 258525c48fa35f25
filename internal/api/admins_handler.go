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

// adminsHandler groups administrator account management handlers.
type adminsHandler struct {
	client *upstream.Client
}

func newAdminsHandler(client *upstream.Client) *adminsHandler {
	return &adminsHandler{client: client}
}

func adminTableConfig() table.Config {
	return table.Config{
		Columns: []table.Column{
			{Key: "full_name", Header: "Name", Sortable: true},
			{Key: "username", Header: "Username", Sortable: true},
			{Key: "email", Header: "Email", Sortable: true},
		},
		SearchKeys:       []string{"full_name", "username", "email"},
		PageSize:         table.DefaultPageSize,
		Sortable:         true,
		DefaultSortKey:   "full_name",
		DefaultSortOrder: table.Ascending,
		Empty: &table.EmptyState{
			Title: "No administrators found",
		},
	}
}

// List handles GET /api/admin/users.
func (h *adminsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	records, err := h.client.ListAdmins(r.Context(), p.Token)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row(rec))
	}

	view, err := table.New(adminTableConfig(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build admin view")
		return
	}
	applyTableParams(view, r)
	renderTable(w, view)
}

// Create handles POST /api/admin/users. The backend generates the initial
// password and emails it to the new administrator.
func (h *adminsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req upstream.CreateAdminInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email is required")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "username is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	created, err := h.client.CreateAdmin(r.Context(), p.Token, req)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "create_admin", "admin_user", fmt.Sprintf("%v", created["id"]))
	writeJSON(w, http.StatusCreated, created)
}

// ResetPassword handles POST /api/admin/users/{id}/reset-password.
func (h *adminsHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	if err := h.client.ResetAdminPassword(r.Context(), p.Token, id); err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "reset_admin_password", "admin_user", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset email sent"})
}
