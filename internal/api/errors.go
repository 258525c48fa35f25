package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ccapconnect/dashboard/internal/upstream"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// writeUpstreamError translates a backend call failure into a dashboard
// error response. A rejected token means the session died server-side, so
// the client is sent back to the login view; backend validation errors
// pass through with their original status and detail.
func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, upstream.ErrUnauthorized) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "session_expired",
				"message": "Your session has expired. Please sign in again.",
			},
			"redirect": "/login",
		})
		return
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		writeError(w, statusErr.Status, "upstream_error", statusErr.Message)
		return
	}

	writeError(w, http.StatusBadGateway, "upstream_unavailable", "the C-CAP service is unavailable")
}
