package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/api/handler"
	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

type stubAuthenticator struct {
	principal *domain.Principal
	err       error
}

func (s *stubAuthenticator) ResolvePrincipal(_ context.Context, header string) (*domain.Principal, error) {
	if header == "" {
		return nil, nil
	}
	return s.principal, s.err
}

func (s *stubAuthenticator) Mode() string { return "stateless" }

type stubUsers struct {
	ports.UserService
	deleted string
}

func (s *stubUsers) DeleteUser(_ context.Context, _ *domain.Principal, email string) error {
	s.deleted = email
	return nil
}

func newTestRouter(authn ports.Authenticator, users ports.UserService) http.Handler {
	return NewRouter(Dependencies{
		Authenticator: authn,
		Users:         users,
		Checks:        map[string]handler.DependencyCheck{},
		Log:           zerolog.Nop(),
		Registry:      prometheus.NewRegistry(),
	})
}

func serve(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestRouter_StatelessModeHasNoUserRoutes(t *testing.T) {
	authn := &stubAuthenticator{principal: &domain.Principal{Email: "svc@x.com"}}
	r := newTestRouter(authn, nil)

	if rec := serve(r, http.MethodPost, "/auth/login", `{}`, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for login in stateless mode, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/auth/me", "", "tok"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for /auth/me, got %d", rec.Code)
	}
}

func TestRouter_MeRequiresToken(t *testing.T) {
	r := newTestRouter(&stubAuthenticator{}, nil)

	rec := serve(r, http.MethodGet, "/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decode(t, rec); resp.Code != "UNAUTHORISED" {
		t.Fatalf("unexpected code %q", resp.Code)
	}
}

func TestRouter_InvalidTokenIsUnauthorised(t *testing.T) {
	r := newTestRouter(&stubAuthenticator{err: domain.ErrUnauthorised}, &stubUsers{})

	rec := serve(r, http.MethodDelete, "/auth/user", `{"email":"b@x.com"}`, "broken")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_GuardedRoute(t *testing.T) {
	users := &stubUsers{}
	admin := &stubAuthenticator{principal: &domain.Principal{
		Email:       "admin@x.com",
		Permissions: domain.PermissionSetOf(domain.PermUserDelete),
	}}

	rec := serve(newTestRouter(admin, users), http.MethodDelete, "/auth/user", `{"email":"b@x.com"}`, "tok")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if users.deleted != "b@x.com" {
		t.Fatalf("delete not forwarded")
	}

	plain := &stubAuthenticator{principal: &domain.Principal{Email: "user@x.com"}}
	rec = serve(newTestRouter(plain, &stubUsers{}), http.MethodDelete, "/auth/user", `{"email":"b@x.com"}`, "tok")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if resp := decode(t, rec); resp.Code != "FORBIDDEN" {
		t.Fatalf("unexpected code %q", resp.Code)
	}
}

func TestRouter_SecurityHeadersAndHealth(t *testing.T) {
	rec := serve(newTestRouter(&stubAuthenticator{}, nil), http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing X-Frame-Options header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing X-Content-Type-Options header")
	}
}
