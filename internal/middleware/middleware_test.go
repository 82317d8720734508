package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Auth
// =============================================================================

type stubResolver struct {
	user *domain.User
	err  error
}

func (s stubResolver) GetBySessionToken(context.Context, string) (*domain.User, error) {
	return s.user, s.err
}

func TestWithUser(t *testing.T) {
	user := &domain.User{ID: uuid.New()}

	tests := []struct {
		name        string
		cookie      bool
		resolver    stubResolver
		wantUser    bool
		wantCleared bool
	}{
		{"no cookie", false, stubResolver{user: user}, false, false},
		{"valid session", true, stubResolver{user: user}, true, false},
		{"expired session", true, stubResolver{err: domain.Unauthorized("", "expired")}, false, true},
		{"store failure", true, stubResolver{err: domain.Internal(io.EOF, "", "db")}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(tt.resolver, discardLogger(), false)

			var got *domain.User
			h := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.GetUser(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/limits/lists", nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "token"})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if (got != nil) != tt.wantUser {
				t.Errorf("user in context = %v, want %v", got != nil, tt.wantUser)
			}
			cleared := strings.Contains(rec.Header().Get("Set-Cookie"), SessionCookieName+"=;")
			if cleared != tt.wantCleared {
				t.Errorf("cookie cleared = %v, want %v", cleared, tt.wantCleared)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	mw := NewAuthMiddleware(stubResolver{}, discardLogger(), false)
	called := false
	h := mw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/referrals/code", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("next handler should not run")
	}

	req = req.WithContext(auth.SetUser(req.Context(), &domain.User{ID: uuid.New()}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !called {
		t.Error("next handler should run for signed-in user")
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mk := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mk("a"), mk("b"), mk("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "h")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,c,h" {
		t.Errorf("order = %s", got)
	}
}

// =============================================================================
// Rate limiting
// =============================================================================

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestRateLimiter_Window(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("4th attempt should be denied")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients have their own window")
	}

	clock.now = clock.now.Add(20 * time.Second)
	if got := rl.TimeUntilReset("1.2.3.4"); got != 40*time.Second {
		t.Errorf("TimeUntilReset = %v, want 40s", got)
	}

	clock.now = clock.now.Add(40 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Error("attempt in the next window should be allowed")
	}
	if got := rl.TimeUntilReset("unknown"); got != 0 {
		t.Errorf("TimeUntilReset for unknown key = %v", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, nil)
	h := NewRateLimitMiddleware(rl, discardLogger()).Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/referrals/redeem", nil)
		req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(rec.Body.String(), domain.ERATELIMIT) {
		t.Errorf("expected rate_limit code in body, got %s", rec.Body.String())
	}
}

func TestRateLimitMiddleware_KeysByUser(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, nil)
	h := NewRateLimitMiddleware(rl, discardLogger()).Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(user *domain.User, ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/referrals/redeem", nil)
		req.Header.Set("X-Forwarded-For", ip)
		if user != nil {
			req = req.WithContext(auth.SetUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	user := &domain.User{ID: uuid.New()}
	if code := send(user, "1.1.1.1"); code != http.StatusNoContent {
		t.Fatalf("first request: got %d", code)
	}
	// A new IP does not reset the account's budget.
	if code := send(user, "2.2.2.2"); code != http.StatusTooManyRequests {
		t.Fatalf("same user, new IP: got %d", code)
	}
	// Anonymous traffic from the first IP has its own budget.
	if code := send(nil, "1.1.1.1"); code != http.StatusNoContent {
		t.Fatalf("anonymous request: got %d", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded for", "203.0.113.5, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Logging
// =============================================================================

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewRequestLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/referrals/validate?code=ABC234", nil))
	out := buf.String()
	if !strings.Contains(out, "status=418") {
		t.Errorf("expected status in log, got %s", out)
	}
	if strings.Contains(out, "ABC234") {
		t.Errorf("referral code leaked into log: %s", out)
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if buf.Len() != 0 {
		t.Errorf("health checks should not be logged, got %s", buf.String())
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/api/lists/public", "", "/api/lists/public"},
		{"/api/lists/public", "q=dua&page=2", "/api/lists/public?page=2&q=dua"},
		{"/api/referrals/validate", "code=ABC234", "/api/referrals/validate?code=REDACTED"},
		{"/x", "Token=abc", "/x?Token=REDACTED"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.path, tt.query); got != tt.want {
			t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
		}
	}
}

// =============================================================================
// Basic auth and security headers
// =============================================================================

func TestBasicAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	open := BasicAuth("metrics", "", "")(ok)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("disabled auth: got %d", rec.Code)
	}

	guarded := BasicAuth("metrics", "prom", "secret")(ok)
	tests := []struct {
		user, pass string
		set        bool
		want       int
	}{
		{"", "", false, http.StatusUnauthorized},
		{"prom", "wrong", true, http.StatusUnauthorized},
		{"other", "secret", true, http.StatusUnauthorized},
		{"prom", "secret", true, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if tt.set {
			req.SetBasicAuth(tt.user, tt.pass)
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("user=%q pass=%q: got %d, want %d", tt.user, tt.pass, rec.Code, tt.want)
		}
		if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
			t.Error("expected WWW-Authenticate header")
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := NewSecurityHeadersMiddleware(true).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/limits/images", nil))

	want := map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Content-Security-Policy":   apiCSP,
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Cache-Control":             "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}

	rec = httptest.NewRecorder()
	NewSecurityHeadersMiddleware(false).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should be off without TLS")
	}
	if rec.Header().Get("Cache-Control") != "" {
		t.Error("Cache-Control only applies to /api/")
	}
}
