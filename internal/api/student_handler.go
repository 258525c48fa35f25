package api

import (
	"net/http"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/upstream"
)

// studentHandler groups the student self-service handlers. Every write
// refreshes the persisted session so the identity the guards see tracks
// the backend.
type studentHandler struct {
	controller *auth.Controller
	client     *upstream.Client
}

func newStudentHandler(controller *auth.Controller, client *upstream.Client) *studentHandler {
	return &studentHandler{controller: controller, client: client}
}

// Profile handles GET /api/student/profile.
func (h *studentHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	identity := h.controller.Refresh(r.Context(), p.SessionKey)
	if identity == nil {
		identity = p.Identity
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
}

// UpdateProfile handles PUT /api/student/profile.
func (h *studentHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var fields upstream.Record
	if err := readJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "no profile fields supplied")
		return
	}
	// Students cannot move their own program stage.
	delete(fields, "current_bucket")

	p := auth.PrincipalFromContext(r.Context())
	if _, err := h.client.UpdateStudentProfile(r.Context(), p.Token, p.Identity.ID, fields); err != nil {
		writeUpstreamError(w, err)
		return
	}

	identity := h.controller.Refresh(r.Context(), p.SessionKey)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
}

// Onboarding handles PUT /api/student/onboarding: persist one onboarding
// step's answers and advance (or finish) the flow. Step 0 means done.
func (h *studentHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OnboardingStep *int            `json:"onboarding_step"`
		Fields         upstream.Record `json:"fields"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.OnboardingStep == nil || *req.OnboardingStep < 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "onboarding_step must be zero or positive")
		return
	}

	fields := req.Fields
	if fields == nil {
		fields = upstream.Record{}
	}
	fields["onboarding_step"] = *req.OnboardingStep

	p := auth.PrincipalFromContext(r.Context())
	if _, err := h.client.UpdateStudentProfile(r.Context(), p.Token, p.Identity.ID, fields); err != nil {
		writeUpstreamError(w, err)
		return
	}

	identity := h.controller.Refresh(r.Context(), p.SessionKey)
	resp := map[string]interface{}{"user": identity}
	if identity != nil && identity.OnboardingComplete() {
		resp["redirect"] = auth.StudentHome
	}
	writeJSON(w, http.StatusOK, resp)
}
