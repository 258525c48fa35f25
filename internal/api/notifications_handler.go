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

// notificationsHandler manages the email notification subscription list
// (admin only).
type notificationsHandler struct {
	client *upstream.Client
}

func newNotificationsHandler(client *upstream.Client) *notificationsHandler {
	return &notificationsHandler{client: client}
}

func notificationTableConfig() table.Config {
	return table.Config{
		Columns: []table.Column{
			{Key: "email", Header: "Email", Sortable: true},
			{Key: "description", Header: "Description"},
			{Key: "is_active", Header: "Active", Align: table.AlignCenter},
		},
		SearchKeys: []string{"email", "description"},
		FilterOptions: []table.FilterOption{
			{Value: "active", Label: "Active"},
			{Value: "paused", Label: "Paused"},
		},
		FilterRule: &table.FilterRule{
			Kind:        table.FilterBoolEquals,
			Field:       "is_active",
			TruthyValue: "active",
		},
		PageSize:         table.DefaultPageSize,
		Sortable:         true,
		DefaultSortKey:   "email",
		DefaultSortOrder: table.Ascending,
		Empty: &table.EmptyState{
			Title: "No notification subscriptions",
		},
	}
}

// List handles GET /api/admin/email-notifications.
func (h *notificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	records, err := h.client.ListNotifications(r.Context(), p.Token)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row(rec))
	}

	view, err := table.New(notificationTableConfig(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build notification view")
		return
	}
	applyTableParams(view, r)
	renderTable(w, view)
}

// Create handles POST /api/admin/email-notifications.
func (h *notificationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req upstream.NotificationInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	created, err := h.client.CreateNotification(r.Context(), p.Token, req)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "create_notification", "email_notification", fmt.Sprintf("%v", created["id"]))
	writeJSON(w, http.StatusCreated, created)
}

// Toggle handles PUT /api/admin/email-notifications/{id}/toggle.
func (h *notificationsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "notification id is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	updated, err := h.client.ToggleNotification(r.Context(), p.Token, id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "toggle_notification", "email_notification", id)
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/email-notifications/{id}.
func (h *notificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "notification id is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	if err := h.client.DeleteNotification(r.Context(), p.Token, id); err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "delete_notification", "email_notification", id)
	w.WriteHeader(http.StatusNoContent)
}
