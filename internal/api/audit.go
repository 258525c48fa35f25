package api

import (
	"log/slog"
	"net/http"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/ratelimit"
)

// auditLog emits a structured audit log entry for an admin action.
func auditLog(r *http.Request, action string, resourceType string, resourceID string, detail ...any) {
	attrs := []any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", ratelimit.ClientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}

	if p := auth.PrincipalFromContext(r.Context()); p != nil && p.Identity != nil {
		attrs = append(attrs, "user_id", p.Identity.ID, "user_email", p.Identity.Email, "user_role", p.Identity.Role)
	}

	attrs = append(attrs, detail...)
	slog.Info("audit", attrs...)
}
