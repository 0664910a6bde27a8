package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zenora/internal/domain/auth"
	"zenora/internal/platform/requestctx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGeneratedAndPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if seen == "" {
		t.Fatal("no request id in context")
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Error("header and context request id differ")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "upstream-id" {
		t.Errorf("upstream id not honored, got %s", seen)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(3)
	h := limiter.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request: status %d, want 429", rec.Code)
	}

	// a different client is unaffected
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status %d, want 200", rec.Code)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	limiter := NewRateLimiter(1)
	now := time.Now()
	if !limiter.allow("ip", now) {
		t.Fatal("first request should pass")
	}
	if limiter.allow("ip", now) {
		t.Fatal("second request in window should fail")
	}
	if !limiter.allow("ip", now.Add(61*time.Second)) {
		t.Fatal("request after window should pass")
	}
}

type fakeSessions struct {
	valid map[string]bool
}

func (f *fakeSessions) SessionValid(_ context.Context, sessionID string) (bool, error) {
	return f.valid[sessionID], nil
}

func TestAuthenticate(t *testing.T) {
	const secret = "test-secret"
	sessions := &fakeSessions{valid: map[string]bool{"sess-1": true}}

	var gotUser auth.UserContext
	h := Authenticate(secret, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUser(r.Context())
	}))

	token, err := auth.GenerateToken(secret, auth.Claims{
		UserID: "u1", TenantID: "t1", RoleID: "r1", RoleName: "employee", SessionID: "sess-1",
	}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status %d", rec.Code)
	}
	if gotUser.UserID != "u1" || gotUser.TenantID != "t1" {
		t.Errorf("user context = %+v", gotUser)
	}

	// missing header
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status %d, want 401", rec.Code)
	}

	// revoked session
	sessions.valid["sess-1"] = false
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked session: status %d, want 401", rec.Code)
	}

	// wrong secret
	badToken, _ := auth.GenerateToken("other-secret", auth.Claims{UserID: "u1"}, time.Minute)
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+badToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token: status %d, want 401", rec.Code)
	}
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	idem := NewIdempotency(time.Hour)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"req-1"}`))
	}))

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/leave/requests", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := post("k1")
	second := post("k1")
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Code != first.Code || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %d %q", first.Code, first.Body, second.Code, second.Body)
	}

	post("k2")
	if calls != 2 {
		t.Error("distinct key must reach the handler")
	}

	post("")
	post("")
	if calls != 4 {
		t.Error("requests without a key must always reach the handler")
	}
}

func TestIdempotencyDropsServerErrors(t *testing.T) {
	idem := NewIdempotency(time.Hour)
	fail := true
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/leave/requests", nil)
	req.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}

	// a retry after a 5xx runs the handler again
	fail = false
	req = httptest.NewRequest("POST", "/leave/requests", nil)
	req.Header.Set("Idempotency-Key", "k1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry status %d, want 201", rec.Code)
	}
}

type fakePerms struct {
	grants map[string]bool
}

func (f *fakePerms) HasPermission(_ context.Context, roleID, permission string) (bool, error) {
	return f.grants[roleID+":"+permission], nil
}

func TestRequirePermission(t *testing.T) {
	perms := &fakePerms{grants: map[string]bool{"r1:leave.read": true}}
	h := RequirePermission("leave.read", perms)(okHandler())

	withUser := func(roleID string) *http.Request {
		req := httptest.NewRequest("GET", "/", nil)
		ctx := context.WithValue(req.Context(), ctxKeyUser, auth.UserContext{UserID: "u1", RoleID: roleID})
		return req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withUser("r1"))
	if rec.Code != http.StatusOK {
		t.Errorf("granted: status %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withUser("r2"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("denied: status %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status %d, want 401", rec.Code)
	}
}
