package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ccapconnect/dashboard/internal/auth"
	"github.com/ccapconnect/dashboard/internal/metrics"
	"github.com/ccapconnect/dashboard/internal/ratelimit"
	"github.com/ccapconnect/dashboard/internal/session"
	"github.com/ccapconnect/dashboard/internal/upstream"
)

// ---------------------------------------------------------------------------
// Fake C-CAP backend
// ---------------------------------------------------------------------------

// fakeBackend is a scripted stand-in for the C-CAP API. Tokens map to
// canned identities; revoked tokens read as expired.
type fakeBackend struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{revoked: make(map[string]bool)}
}

func (f *fakeBackend) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
}

func (f *fakeBackend) isRevoked(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[token]
}

var fakeIdentities = map[string]string{
	"tok-admin": `{
		"id":"a-1","email":"director@ccap.org","username":"director",
		"full_name":"Program Director","role":"admin"
	}`,
	"tok-student": `{
		"id":"s-1","email":"sam@ccap.org","username":"sam",
		"full_name":"Sam Sous","role":"student",
		"student_profile":{"id":"p-1","first_name":"Sam","last_name":"Sous",
			"current_bucket":"Apprentice","onboarding_step":0}
	}`,
	"tok-newbie": `{
		"id":"s-2","email":"newbie@ccap.org","username":"newbie",
		"full_name":"Nat New","role":"student",
		"student_profile":{"id":"p-2","first_name":"Nat","last_name":"New",
			"current_bucket":"Pre-Apprentice","onboarding_step":2}
	}`,
}

var fakeTokens = map[string]string{
	"director@ccap.org": "tok-admin",
	"sam@ccap.org":      "tok-student",
	"newbie@ccap.org":   "tok-newbie",
}

const fakeStudentList = `[
	{"id":"s-1","email":"sam@ccap.org","username":"sam",
		"student_profile":{"first_name":"Sam","last_name":"Sous","current_bucket":"Apprentice","high_school":"Lincoln High"}},
	{"id":"s-2","email":"newbie@ccap.org","username":"newbie",
		"student_profile":{"first_name":"Nat","last_name":"New","current_bucket":"Pre-Apprentice","high_school":"Roosevelt High"}},
	{"id":"s-3","email":"zoe@ccap.org","username":"zoe",
		"student_profile":{"first_name":"Zoe","last_name":"Abel","current_bucket":"Apprentice","high_school":"Lincoln High"}}
]`

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			tok, ok := fakeTokens[req["email"]]
			if !ok || req["password"] != "brunoise" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
				return
			}
			fmt.Fprintf(w, `{"access_token":%q}`, tok)

		case r.Method == http.MethodGet && r.URL.Path == "/auth/me":
			body, ok := fakeIdentities[token]
			if !ok || f.isRevoked(token) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(body))

		case r.Method == http.MethodGet && r.URL.Path == "/students":
			if token != "tok-admin" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(fakeStudentList))

		case r.Method == http.MethodPut && r.URL.Path == "/students/bulk/program-status":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"updated":2}`))

		case r.Method == http.MethodGet && r.URL.Path == "/announcements":
			_, _ = w.Write([]byte(`[{"id":"an-1","title":"Knife skills workshop","body":"Sign up now","created_at":"2026-08-01T10:00:00Z"}]`))

		case r.Method == http.MethodGet && r.URL.Path == "/posts":
			_, _ = w.Write([]byte(`[]`))

		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
		}
	}
}

// ---------------------------------------------------------------------------
// Test harness
// ---------------------------------------------------------------------------

type testServer struct {
	handler http.Handler
	backend *fakeBackend
	store   *session.MemoryStore
}

func newTestServer(t *testing.T, loginRate int) (*testServer, func()) {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())

	client := upstream.New(srv.URL, 5*time.Second)
	store := session.NewMemoryStore()
	controller := auth.NewController(store, client)
	codec, err := auth.NewCookieCodec("test-secret", time.Hour, false)
	if err != nil {
		t.Fatalf("NewCookieCodec() error: %v", err)
	}

	handler := NewRouter(RouterDeps{
		Controller:     controller,
		Guard:          auth.NewGuard(controller, codec),
		Cookies:        codec,
		Client:         client,
		Limiter:        ratelimit.New(loginRate, time.Minute),
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"*"},
	})

	return &testServer{handler: handler, backend: backend, store: store}, srv.Close
}

func (ts *testServer) do(t *testing.T, method, path string, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// login signs in and returns the session cookies.
func (ts *testServer) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"brunoise"}`, email)
	rec := ts.do(t, http.MethodPost, "/api/auth/login", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed with %d: %s", email, rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	return cookies
}

// ---------------------------------------------------------------------------
// Health and manifest
// ---------------------------------------------------------------------------

func TestHealthCheck(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

func TestWellKnownManifest(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()

	rec := ts.do(t, http.MethodGet, "/.well-known/ccapd.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var manifest map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&manifest); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	for _, field := range []string{"name", "api_base", "auth", "endpoints", "health"} {
		if _, ok := manifest[field]; !ok {
			t.Errorf("manifest missing field %q", field)
		}
	}

	// Every advertised GET endpoint must be routable: unauthenticated
	// requests may be denied, but never unmatched.
	endpoints, _ := manifest["endpoints"].(map[string]interface{})
	for _, name := range []string{"session", "students", "announcements", "profile"} {
		path, _ := endpoints[name].(string)
		if path == "" {
			t.Errorf("manifest missing endpoint %q", name)
			continue
		}
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
			t.Errorf("advertised endpoint %s = %s is not routable: got %d", name, path, rec.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// Auth flows
// ---------------------------------------------------------------------------

func TestLogin_AdminLandsOnAdminHome(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()

	rec := ts.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"director@ccap.org","password":"brunoise"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		User     map[string]interface{} `json:"user"`
		Redirect string                 `json:"redirect"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if body.Redirect != "/admin" {
		t.Errorf("expected redirect /admin, got %q", body.Redirect)
	}
	if body.User["email"] != "director@ccap.org" {
		t.Errorf("unexpected user: %v", body.User)
	}
}

func TestLogin_MidOnboardingStudentLandsOnOnboarding(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()

	rec := ts.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"newbie@ccap.org","password":"brunoise"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Redirect string `json:"redirect"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Redirect != "/student/onboarding" {
		t.Errorf("expected redirect /student/onboarding, got %q", body.Redirect)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()

	rec := ts.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"director@ccap.org","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			t.Error("failed login must not set a session cookie")
		}
	}
}

func TestLogin_RateLimited(t *testing.T) {
	ts, done := newTestServer(t, 2)
	defer done()

	body := `{"email":"director@ccap.org","password":"wrong"}`
	ts.do(t, http.MethodPost, "/api/auth/login", body, nil)
	ts.do(t, http.MethodPost, "/api/auth/login", body, nil)

	rec := ts.do(t, http.MethodPost, "/api/auth/login", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", rec.Code)
	}
}

func TestSession_RestoresValidSession(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "sam@ccap.org")

	rec := ts.do(t, http.MethodGet, "/api/auth/session", "", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		User     map[string]interface{} `json:"user"`
		Redirect string                 `json:"redirect"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.User["email"] != "sam@ccap.org" || body.Redirect != "/student" {
		t.Errorf("unexpected session response: %+v", body)
	}
}

func TestSession_RevokedTokenClearsSession(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "director@ccap.org")

	ts.backend.revoke("tok-admin")

	rec := ts.do(t, http.MethodGet, "/api/auth/session", "", cookies)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session, got %d", rec.Code)
	}

	// The cleared session no longer opens guarded routes.
	rec = ts.do(t, http.MethodGet, "/api/admin/students", "", cookies)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after revocation, got %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "director@ccap.org")

	rec := ts.do(t, http.MethodPost, "/api/auth/logout", "", cookies)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/students", "", cookies)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}

	// Logging out twice is harmless.
	if rec := ts.do(t, http.MethodPost, "/api/auth/logout", "", cookies); rec.Code != http.StatusNoContent {
		t.Errorf("second logout should still be 204, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Route guards
// ---------------------------------------------------------------------------

func TestGuards(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	adminCookies := ts.login(t, "director@ccap.org")
	studentCookies := ts.login(t, "sam@ccap.org")
	newbieCookies := ts.login(t, "newbie@ccap.org")

	tests := []struct {
		name     string
		path     string
		cookies  []*http.Cookie
		status   int
		redirect string
	}{
		{"anonymous denied", "/api/admin/students", nil, http.StatusUnauthorized, "/login"},
		{"student denied admin view", "/api/admin/students", studentCookies, http.StatusForbidden, "/student"},
		{"admin denied student view", "/api/student/profile", adminCookies, http.StatusForbidden, "/admin"},
		{"mid-onboarding student held back", "/api/posts", newbieCookies, http.StatusForbidden, "/student/onboarding"},
		{"onboarded student reads posts", "/api/posts", studentCookies, http.StatusOK, ""},
		{"admin reads roster", "/api/admin/students", adminCookies, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tt.path, "", tt.cookies)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.redirect != "" {
				var body struct {
					Redirect string `json:"redirect"`
				}
				_ = json.NewDecoder(rec.Body).Decode(&body)
				if body.Redirect != tt.redirect {
					t.Errorf("expected redirect %q, got %q", tt.redirect, body.Redirect)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Roster table
// ---------------------------------------------------------------------------

func TestRoster_DefaultView(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "director@ccap.org")

	rec := ts.do(t, http.MethodGet, "/api/admin/students", "", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page struct {
		Rows       []map[string]interface{} `json:"rows"`
		Pagination struct {
			TotalItems int `json:"totalItems"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
		SortKey string `json:"sortKey"`
		Filter  string `json:"filter"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decoding roster page: %v", err)
	}

	if page.Pagination.TotalItems != 3 || page.Pagination.TotalPages != 1 {
		t.Errorf("unexpected pagination: %+v", page.Pagination)
	}
	if page.SortKey != "full_name" || page.Filter != "all" {
		t.Errorf("unexpected default view state: sort=%q filter=%q", page.SortKey, page.Filter)
	}
	// Default sort is name ascending: Nat New, Sam Sous, Zoe Abel.
	if page.Rows[0]["first_name"] != "Nat" || page.Rows[2]["first_name"] != "Zoe" {
		t.Errorf("unexpected row order: %v", page.Rows)
	}
}

func TestRoster_SearchFilterAndSort(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "director@ccap.org")

	// Stage filter narrows to the two apprentices, sorted by email desc.
	rec := ts.do(t, http.MethodGet,
		"/api/admin/students?filter=Apprentice&sort=email&order=desc", "", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page struct {
		Rows   []map[string]interface{} `json:"rows"`
		Filter string                   `json:"filter"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&page)
	if len(page.Rows) != 2 || page.Filter != "Apprentice" {
		t.Fatalf("unexpected filtered page: %d rows, filter %q", len(page.Rows), page.Filter)
	}
	if page.Rows[0]["email"] != "zoe@ccap.org" {
		t.Errorf("expected zoe first under email desc, got %v", page.Rows[0]["email"])
	}

	// Search hits the high school field.
	rec = ts.do(t, http.MethodGet, "/api/admin/students?q=roosevelt", "", cookies)
	var searched struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&searched)
	if len(searched.Rows) != 1 || searched.Rows[0]["email"] != "newbie@ccap.org" {
		t.Errorf("unexpected search result: %v", searched.Rows)
	}
}

// ---------------------------------------------------------------------------
// Admin mutations
// ---------------------------------------------------------------------------

func TestBulkAssign_RejectsUnknownStage(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "director@ccap.org")

	rec := ts.do(t, http.MethodPut, "/api/admin/students/program-status",
		`{"student_ids":["s-1","s-3"],"bucket":"Head Chef"}`, cookies)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown stage, got %d", rec.Code)
	}
}

func TestBulkAssign_Success(t *testing.T) {
	ts, done := newTestServer(t, 100)
	defer done()
	cookies := ts.login(t, "director@ccap.org")

	rec := ts.do(t, http.MethodPut, "/api/admin/students/program-status",
		`{"student_ids":["s-1","s-3"],"bucket":"Completed Apprentice"}`, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Updated int    `json:"updated"`
		Bucket  string `json:"bucket"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Updated != 2 || body.Bucket != "Completed Apprentice" {
		t.Errorf("unexpected response: %+v", body)
	}
}
