package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/ccapd.json.
const wellKnownManifest = `{
  "name": "C-CAP Connect",
  "description": "Dashboard gateway for the C-CAP culinary apprenticeship program",
  "version": "0.1.0",
  "api_base": "/api",
  "auth": {
    "type": "cookie",
    "cookie": "ccap_session"
  },
  "endpoints": {
    "login": "/api/auth/login",
    "session": "/api/auth/session",
    "students": "/api/admin/students",
    "announcements": "/api/announcements",
    "profile": "/api/student/profile"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static dashboard well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
