package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ccapconnect/dashboard/internal/session"
)

// Landing paths the dashboard client navigates to when a guard denies a
// request.
const (
	LoginPath      = "/login"
	AdminHomePath  = "/admin"
	StudentHome    = "/student"
	OnboardingPath = "/student/onboarding"
)

// Principal is the resolved caller of a guarded request.
type Principal struct {
	SessionKey string
	Identity   *session.Identity
	Token      string
}

type contextKey int

const principalKey contextKey = iota

// ContextWithPrincipal returns a child context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by Authenticate, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Guard is the middleware chain protecting dashboard routes. Every
// decision is made fresh per request from the session store; nothing is
// cached across requests.
type Guard struct {
	controller *Controller
	cookies    *CookieCodec
}

// NewGuard creates a Guard over the controller and cookie codec.
func NewGuard(controller *Controller, cookies *CookieCodec) *Guard {
	return &Guard{controller: controller, cookies: cookies}
}

// Authenticate resolves the session cookie into a Principal and stores it
// on the request context. It never denies: anonymous requests pass through
// with a principal whose Identity is nil, so public routes can share the
// chain.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := &Principal{SessionKey: g.cookies.Read(r)}
		if p.SessionKey != "" {
			p.Identity, p.Token = g.controller.Current(r.Context(), p.SessionKey)
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAuth denies anonymous requests with a 401 pointing the client at
// the login view.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil || p.Identity == nil {
			deny(w, http.StatusUnauthorized, "authentication required", LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole denies authenticated requests whose role does not match,
// redirecting to the caller's own home view rather than the login view.
// It assumes RequireAuth already ran.
func (g *Guard) RequireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil || p.Identity == nil {
				deny(w, http.StatusUnauthorized, "authentication required", LoginPath)
				return
			}
			if p.Identity.Role != role {
				deny(w, http.StatusForbidden, "insufficient role", homeFor(p.Identity))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOnboarding denies students who have not finished onboarding,
// pointing them back at the onboarding flow. Routes serving the flow
// itself simply omit this middleware.
func (g *Guard) RequireOnboarding(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil || p.Identity == nil {
			deny(w, http.StatusUnauthorized, "authentication required", LoginPath)
			return
		}
		if !p.Identity.OnboardingComplete() {
			deny(w, http.StatusForbidden, "onboarding incomplete", OnboardingPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// homeFor is where a signed-in user belongs when they reach a view for the
// other role.
func homeFor(id *session.Identity) string {
	if id.Role == session.RoleAdmin {
		return AdminHomePath
	}
	return StudentHome
}

type denial struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Redirect string `json:"redirect"`
}

func deny(w http.ResponseWriter, status int, message, redirect string) {
	var body denial
	if status == http.StatusUnauthorized {
		body.Error.Code = "unauthorized"
	} else {
		body.Error.Code = "forbidden"
	}
	body.Error.Message = message
	body.Redirect = redirect

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
