package api

import (
	"errors"
	"net/http"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/session"
	"github.com/ccapconnect/dashboard/internal/upstream"
)

// authHandler groups the authentication HTTP handlers.
type authHandler struct {
	controller *auth.Controller
	cookies    *auth.CookieCodec
	client     *upstream.Client
}

func newAuthHandler(controller *auth.Controller, cookies *auth.CookieCodec, client *upstream.Client) *authHandler {
	return &authHandler{controller: controller, cookies: cookies, client: client}
}

// landingFor is the view a freshly authenticated user should land on.
func landingFor(id *session.Identity) string {
	if id.Role == session.RoleAdmin {
		return auth.AdminHomePath
	}
	if !id.OnboardingComplete() {
		return auth.OnboardingPath
	}
	return auth.StudentHome
}

// Login handles POST /api/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	// Reuse the caller's session key when they already have one so a
	// re-login lands in the same store slot.
	key := h.cookies.Read(r)
	if key == "" {
		key = h.controller.NewSessionKey()
	}

	if !h.controller.Login(r.Context(), key, req.Email, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	identity, _ := h.controller.Current(r.Context(), key)
	if identity == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "session was not persisted")
		return
	}

	if err := h.cookies.Write(w, key); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to set session cookie")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":     identity,
		"redirect": landingFor(identity),
	})
}

// Session handles GET /api/auth/session: restore and re-validate the
// persisted session at dashboard load.
func (h *authHandler) Session(w http.ResponseWriter, r *http.Request) {
	key := h.cookies.Read(r)
	if key == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	identity := h.controller.Restore(r.Context(), key)
	if identity == nil {
		h.cookies.Clear(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":     identity,
		"redirect": landingFor(identity),
	})
}

// Logout handles POST /api/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if key := h.cookies.Read(r); key != "" {
		h.controller.Logout(r.Context(), key)
	}
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /api/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req upstream.RegistrationInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "first and last name are required")
		return
	}

	if err := h.client.RegisterStudent(r.Context(), req); err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// RequestPasswordReset handles POST /api/auth/reset-password/request.
func (h *authHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email is required")
		return
	}

	// Deliberately report success even when the address is unknown, so the
	// endpoint cannot be used to probe for accounts.
	if err := h.client.RequestPasswordReset(r.Context(), req.Email); err != nil {
		var statusErr *upstream.StatusError
		if !errors.As(err, &statusErr) || statusErr.Status >= 500 {
			writeUpstreamError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset email sent"})
}

// ConfirmPasswordReset handles POST /api/auth/reset-password/confirm.
func (h *authHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "token and new password are required")
		return
	}

	if err := h.client.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
