package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func protected(a *Authenticator) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return a.Authenticate(a.RequireRole(RoleAdmin, RoleOrganizer)(ok))
}

func mustToken(t *testing.T, secret string, role Role, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(secret, 7, role, ttl)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestRequireRole(t *testing.T) {
	a := NewAuthenticator(testSecret, discardLogger())

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "organizer", header: "Bearer " + mustToken(t, testSecret, RoleOrganizer, time.Hour), want: http.StatusNoContent},
		{name: "admin via query", query: mustToken(t, testSecret, RoleAdmin, time.Hour), want: http.StatusNoContent},
		{name: "viewer", header: "Bearer " + mustToken(t, testSecret, RoleViewer, time.Hour), want: http.StatusForbidden},
		{name: "wrong secret", header: "Bearer " + mustToken(t, "other", RoleAdmin, time.Hour), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + mustToken(t, testSecret, RoleAdmin, -time.Minute), want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-token", want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/courts"
			if tc.query != "" {
				target += "?access_token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodPut, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			protected(a).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestAuthDisabledAllowsEverything(t *testing.T) {
	a := NewAuthenticator("", discardLogger())
	req := httptest.NewRequest(http.MethodPut, "/courts", nil)
	rr := httptest.NewRecorder()
	protected(a).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with auth disabled, got %d", rr.Code)
	}
	if !a.CanModify(req) {
		t.Fatal("everyone may modify when auth is disabled")
	}
}

func TestCanModifyAndContextHelpers(t *testing.T) {
	a := NewAuthenticator(testSecret, discardLogger())

	var canModify bool
	var userID int
	h := a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		canModify = a.CanModify(r)
		userID, _ = GetUserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, testSecret, RoleOrganizer, time.Hour))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !canModify || userID != 7 {
		t.Fatalf("organizer: canModify=%v userID=%d", canModify, userID)
	}

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if canModify {
		t.Fatal("anonymous viewer must not modify")
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	line := buf.String()
	for _, want := range []string{`"level":"ERROR"`, `"path":"/health"`, `"status":503`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q does not contain %s", line, want)
		}
	}
}

func TestRequireRoleLogsOperatorAndExplainsRejection(t *testing.T) {
	var buf bytes.Buffer
	a := NewAuthenticator(testSecret, slog.New(slog.NewJSONHandler(&buf, nil)))

	rr := httptest.NewRecorder()
	protected(a).ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/courts", nil))
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), ErrTokenMissing.Error()) {
		t.Fatalf("missing token: status %d body %q", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodPut, "/courts", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, testSecret, RoleOrganizer, time.Hour))
	rr = httptest.NewRecorder()
	protected(a).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("organizer: expected 204, got %d", rr.Code)
	}
	line := buf.String()
	for _, want := range []string{`"msg":"operator request"`, `"user_id":7`, `"role":"organizer"`, `"path":"/courts"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log %q does not contain %s", line, want)
		}
	}
}

func TestContextHelpersWithoutClaims(t *testing.T) {
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	if _, err := GetUserIDFromContext(ctx); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if _, err := GetUserRoleFromContext(ctx); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}
