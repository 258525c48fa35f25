package api

import (
	"fmt"
	"net/http"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/table"
	"github.com/ccapconnect/dashboard/internal/upstream"
	"github.com/go-chi/chi/v5"
)

// ProgramStages are the buckets a student moves through. The list is fixed
// program-wide; the backend rejects anything else.
var ProgramStages = []string{
	"Pre-Apprentice",
	"Apprentice",
	"Completed Pre-Apprentice",
	"Completed Apprentice",
	"Not Active",
}

func validStage(s string) bool {
	for _, stage := range ProgramStages {
		if s == stage {
			return true
		}
	}
	return false
}

// studentsHandler groups the admin-facing student roster handlers.
type studentsHandler struct {
	client *upstream.Client
}

func newStudentsHandler(client *upstream.Client) *studentsHandler {
	return &studentsHandler{client: client}
}

// flattenStudent lifts the profile fields a roster row needs out of the
// nested student_profile object.
func flattenStudent(rec upstream.Record) table.Row {
	row := table.Row{
		"id":       rec["id"],
		"email":    rec["email"],
		"username": rec["username"],
	}
	profile, _ := rec["student_profile"].(map[string]any)
	if profile == nil {
		return row
	}
	row["first_name"] = profile["first_name"]
	row["last_name"] = profile["last_name"]
	row["current_bucket"] = profile["current_bucket"]
	row["onboarding_step"] = profile["onboarding_step"]
	row["high_school"] = profile["high_school"]
	row["graduation_year"] = profile["graduation_year"]
	row["state"] = profile["state"]
	return row
}

// studentTableConfig is the roster table: searchable by name, email and
// school, filterable by program stage, sortable on the headline columns.
func studentTableConfig() table.Config {
	fullName := func(row table.Row) any {
		first, _ := row["first_name"].(string)
		last, _ := row["last_name"].(string)
		if first == "" && last == "" {
			return nil
		}
		return fmt.Sprintf("%s %s", first, last)
	}

	options := make([]table.FilterOption, 0, len(ProgramStages))
	for _, stage := range ProgramStages {
		options = append(options, table.FilterOption{Value: stage, Label: stage})
	}

	return table.Config{
		Columns: []table.Column{
			{Key: "full_name", Header: "Name", Sortable: true, Value: fullName},
			{Key: "email", Header: "Email", Sortable: true},
			{Key: "high_school", Header: "High School", Sortable: true},
			{Key: "graduation_year", Header: "Class Of", Sortable: true, Align: table.AlignRight},
			{Key: "current_bucket", Header: "Program Stage", Sortable: true},
		},
		SearchKeys:       []string{"full_name", "email", "high_school"},
		FilterOptions:    options,
		FilterRule:       &table.FilterRule{Kind: table.FilterFieldEquals, Field: "current_bucket"},
		PageSize:         table.DefaultPageSize,
		Sortable:         true,
		DefaultSortKey:   "full_name",
		DefaultSortOrder: table.Ascending,
		Empty: &table.EmptyState{
			Title:       "No students found",
			Description: "Adjust the search or program stage filter.",
		},
	}
}

// List handles GET /api/admin/students.
func (h *studentsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	records, err := h.client.ListStudents(r.Context(), p.Token)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, flattenStudent(rec))
	}

	view, err := table.New(studentTableConfig(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build roster view")
		return
	}
	applyTableParams(view, r)
	renderTable(w, view)
}

// Get handles GET /api/admin/students/{id}: the portfolio lookup view,
// returning the full backend record untouched.
func (h *studentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "student id is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	rec, err := h.client.GetStudent(r.Context(), p.Token, id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateProfile handles PUT /api/admin/students/{id}/profile.
func (h *studentsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "student id is required")
		return
	}

	var fields upstream.Record
	if err := readJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "no profile fields supplied")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	updated, err := h.client.UpdateStudentProfile(r.Context(), p.Token, id, fields)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "update_profile", "student", id)
	writeJSON(w, http.StatusOK, updated)
}

// AssignStage handles PUT /api/admin/students/{id}/program-status.
func (h *studentsHandler) AssignStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "student id is required")
		return
	}

	var req struct {
		Bucket string `json:"bucket"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if !validStage(req.Bucket) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown program stage")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	if err := h.client.AssignProgramStage(r.Context(), p.Token, id, req.Bucket); err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "assign_stage", "student", id, "bucket", req.Bucket)
	writeJSON(w, http.StatusOK, map[string]string{"status": "assigned", "bucket": req.Bucket})
}

// BulkAssignStage handles PUT /api/admin/students/program-status.
func (h *studentsHandler) BulkAssignStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentIDs []string `json:"student_ids"`
		Bucket     string   `json:"bucket"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if len(req.StudentIDs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "student_ids is required")
		return
	}
	if !validStage(req.Bucket) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown program stage")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	if err := h.client.BulkAssignProgramStage(r.Context(), p.Token, req.StudentIDs, req.Bucket); err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "bulk_assign_stage", "student", "", "count", len(req.StudentIDs), "bucket", req.Bucket)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "assigned",
		"bucket":  req.Bucket,
		"updated": len(req.StudentIDs),
	})
}

// Delete handles DELETE /api/admin/students/{id}.
func (h *studentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "student id is required")
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	if err := h.client.DeleteStudent(r.Context(), p.Token, id); err != nil {
		writeUpstreamError(w, err)
		return
	}

	auditLog(r, "delete_student", "student", id)
	w.WriteHeader(http.StatusNoContent)
}
