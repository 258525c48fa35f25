package api

import (
	"net/http"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/metrics"
	"github.com/ccapconnect/dashboard/internal/ratelimit"
	"github.com/ccapconnect/dashboard/internal/session"
	"github.com/ccapconnect/dashboard/internal/upstream"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps holds all dependencies for the dashboard router.
type RouterDeps struct {
	Controller *auth.Controller
	Guard      *auth.Guard
	Cookies    *auth.CookieCodec
	Client     *upstream.Client
	Limiter    *ratelimit.Limiter
	Metrics    *metrics.Metrics

	// UI serves the single-page dashboard shell; nil disables it.
	UI http.Handler

	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	authH := newAuthHandler(deps.Controller, deps.Cookies, deps.Client)
	students := newStudentsHandler(deps.Client)
	admins := newAdminsHandler(deps.Client)
	announcements := newAnnouncementsHandler(deps.Client)
	notifications := newNotificationsHandler(deps.Client)
	posts := newPostsHandler(deps.Client)
	student := newStudentHandler(deps.Controller, deps.Client)

	g := deps.Guard

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Well-known manifest.
	r.Get("/.well-known/ccapd.json", WellKnownHandler)

	// Prometheus scrape endpoint.
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// Anonymous auth routes. The credential-bearing ones are throttled per
	// client address.
	r.Route("/api/auth", func(ar chi.Router) {
		throttled := ar.With(ratelimit.Middleware(deps.Limiter, func() {
			if deps.Metrics != nil {
				deps.Metrics.IncRateLimitRejection("auth")
			}
		}))
		throttled.Post("/login", authH.Login)
		throttled.Post("/register", authH.Register)
		throttled.Post("/reset-password/request", authH.RequestPasswordReset)
		throttled.Post("/reset-password/confirm", authH.ConfirmPasswordReset)

		ar.Get("/session", authH.Session)
		ar.Post("/logout", authH.Logout)
	})

	// Routes shared by both roles once signed in and onboarded.
	r.Group(func(sr chi.Router) {
		sr.Use(g.Authenticate, g.RequireAuth, g.RequireOnboarding)
		sr.Get("/api/announcements", announcements.List)
		sr.Get("/api/posts", posts.List)
	})

	// Admin views.
	r.Route("/api/admin", func(ar chi.Router) {
		ar.Use(g.Authenticate, g.RequireRole(session.RoleAdmin))

		// Student roster and portfolio lookup.
		ar.Get("/students", students.List)
		ar.Get("/students/{id}", students.Get)
		ar.Put("/students/{id}/profile", students.UpdateProfile)
		ar.Put("/students/{id}/program-status", students.AssignStage)
		ar.Put("/students/program-status", students.BulkAssignStage)
		ar.Delete("/students/{id}", students.Delete)

		// Administrator accounts.
		ar.Get("/users", admins.List)
		ar.Post("/users", admins.Create)
		ar.Post("/users/{id}/reset-password", admins.ResetPassword)

		// Announcements.
		ar.Post("/announcements", announcements.Create)
		ar.Put("/announcements/{id}", announcements.Update)
		ar.Delete("/announcements/{id}", announcements.Delete)

		// Email notification subscriptions.
		ar.Get("/email-notifications", notifications.List)
		ar.Post("/email-notifications", notifications.Create)
		ar.Put("/email-notifications/{id}/toggle", notifications.Toggle)
		ar.Delete("/email-notifications/{id}", notifications.Delete)

		// Live metrics summary for the admin homepage.
		if deps.Metrics != nil {
			ar.Get("/metrics", deps.Metrics.Handler())
		}
	})

	// Student self-service. Onboarding routes omit the onboarding guard so
	// a mid-flow student can finish.
	r.Route("/api/student", func(sr chi.Router) {
		sr.Use(g.Authenticate, g.RequireRole(session.RoleStudent))

		sr.Get("/profile", student.Profile)
		sr.Put("/profile", student.UpdateProfile)
		sr.Put("/onboarding", student.Onboarding)
	})

	// Everything else is the dashboard shell.
	if deps.UI != nil {
		r.NotFound(deps.UI.ServeHTTP)
	}

	return r
}
