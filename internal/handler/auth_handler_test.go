//go:build unit

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"valour-site/internal/auth"
	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// mockSessionManager is a mock implementation of the session.Manager interface.
type mockSessionManager struct {
	values        map[string]interface{}
	destroyCalled bool
	renewCalled   bool
}

// Ensure mockSessionManager implements the session.Manager interface.
var _ session.Manager = (*mockSessionManager)(nil)

func newMockSession() *mockSessionManager {
	return &mockSessionManager{values: map[string]interface{}{}}
}

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.values[key] = val
}
func (m *mockSessionManager) GetString(ctx context.Context, key string) string {
	s, _ := m.values[key].(string)
	return s
}
func (m *mockSessionManager) PopString(ctx context.Context, key string) string {
	s := m.GetString(ctx, key)
	delete(m.values, key)
	return s
}
func (m *mockSessionManager) Remove(ctx context.Context, key string) { delete(m.values, key) }
func (m *mockSessionManager) Destroy(ctx context.Context) error {
	m.destroyCalled = true
	m.values = map[string]interface{}{}
	return nil
}
func (m *mockSessionManager) RenewToken(ctx context.Context) error {
	m.renewCalled = true
	return nil
}

// mockAccounts accepts a single email/password pair.
type mockAccounts struct {
	user       *data.AdminUser
	password   string
	resetErr   error
	requested  string
	resetToken string
}

func (m *mockAccounts) SignIn(ctx context.Context, email, password string) (*data.AdminUser, error) {
	if m.user == nil || email != m.user.Email || password != m.password {
		return nil, auth.ErrInvalidCredentials
	}
	return m.user, nil
}

func (m *mockAccounts) FindByEmail(ctx context.Context, email string) (*data.AdminUser, error) {
	if m.user != nil && m.user.Email == email {
		return m.user, nil
	}
	return nil, nil
}

func (m *mockAccounts) RequestPasswordReset(ctx context.Context, email string) error {
	m.requested = email
	return nil
}

func (m *mockAccounts) ResetPassword(ctx context.Context, token, password string) error {
	m.resetToken = token
	return m.resetErr
}

// authTestView holds minimal versions of the auth templates.
func authTestView(t *testing.T) *view.View {
	t.Helper()
	v, err := view.New(fstest.MapFS{
		"templates/layouts/base.html": {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
		"templates/pages/login.html":  {Data: []byte(`{{template "base" .}}{{define "content"}}login {{.Email}} {{.Error}}{{end}}`)},
		"templates/pages/forgot.html": {Data: []byte(`{{template "base" .}}{{define "content"}}forgot {{.Error}}{{end}}`)},
		"templates/pages/reset.html":  {Data: []byte(`{{template "base" .}}{{define "content"}}reset {{.Token}} {{.Error}}{{end}}`)},
	})
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	return v
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogoutHandler(t *testing.T) {
	mockSession := newMockSession()
	// The accounts and SSO provider are not used by the logout handler.
	authHandler := NewAuthHandler(nil, nil, mockSession, nil, logger.Nop())

	req := httptest.NewRequest("GET", "/auth/logout", nil)
	rr := httptest.NewRecorder()

	authHandler.handleLogout(rr, req)

	if !mockSession.destroyCalled {
		t.Error("expected session.Destroy to be called, but it wasn't")
	}
	if rr.Code != http.StatusFound {
		t.Errorf("want status code %d; got %d", http.StatusFound, rr.Code)
	}
	location, err := rr.Result().Location()
	if err != nil {
		t.Fatalf("could not get redirect location: %v", err)
	}
	if location.Path != "/" {
		t.Errorf("want redirect to '/'; got '%s'", location.Path)
	}
}

func TestLoginHandler(t *testing.T) {
	accounts := &mockAccounts{user: &data.AdminUser{ID: "u-1", Email: "admin@example.com"}, password: "correct horse"}

	t.Run("valid credentials start a session", func(t *testing.T) {
		sm := newMockSession()
		sm.values[session.KeyNext] = "/admin/waivers?status=paid"
		h := NewAuthHandler(accounts, nil, sm, authTestView(t), logger.Nop())

		rr := httptest.NewRecorder()
		appErr := h.handleLogin(rr, postForm("/auth/login", url.Values{"email": {"admin@example.com"}, "password": {"correct horse"}}))

		if appErr != nil {
			t.Fatalf("unexpected error: %v", appErr.Error)
		}
		if !sm.renewCalled {
			t.Error("expected the session token to be renewed")
		}
		if got := sm.GetString(context.Background(), session.KeySubject); got != "u-1" {
			t.Errorf("want subject 'u-1'; got '%s'", got)
		}
		if got := sm.GetString(context.Background(), session.KeyEmail); got != "admin@example.com" {
			t.Errorf("want email in session; got '%s'", got)
		}
		if loc := rr.Header().Get("Location"); loc != "/admin/waivers?status=paid" {
			t.Errorf("want redirect to the remembered page; got '%s'", loc)
		}
	})

	t.Run("remembered page outside the console is ignored", func(t *testing.T) {
		sm := newMockSession()
		sm.values[session.KeyNext] = "https://evil.example.com/"
		h := NewAuthHandler(accounts, nil, sm, authTestView(t), logger.Nop())

		rr := httptest.NewRecorder()
		h.handleLogin(rr, postForm("/auth/login", url.Values{"email": {"admin@example.com"}, "password": {"correct horse"}}))

		if loc := rr.Header().Get("Location"); loc != "/admin" {
			t.Errorf("want redirect to '/admin'; got '%s'", loc)
		}
	})

	t.Run("wrong password renders the form again", func(t *testing.T) {
		sm := newMockSession()
		h := NewAuthHandler(accounts, nil, sm, authTestView(t), logger.Nop())

		rr := httptest.NewRecorder()
		appErr := h.handleLogin(rr, postForm("/auth/login", url.Values{"email": {"admin@example.com"}, "password": {"nope"}}))

		if appErr != nil {
			t.Fatalf("unexpected error: %v", appErr.Error)
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("want status code %d; got %d", http.StatusUnauthorized, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Invalid email or password") {
			t.Errorf("want an error message; got %q", rr.Body.String())
		}
		if sm.GetString(context.Background(), session.KeySubject) != "" {
			t.Error("no subject should be stored after a failed sign-in")
		}
	})
}

func TestForgotHandler_DoesNotRevealAccounts(t *testing.T) {
	accounts := &mockAccounts{}
	sm := newMockSession()
	h := NewAuthHandler(accounts, nil, sm, authTestView(t), logger.Nop())

	rr := httptest.NewRecorder()
	h.handleForgot(rr, postForm("/auth/forgot", url.Values{"email": {"nobody@example.com"}}))

	if accounts.requested != "nobody@example.com" {
		t.Errorf("want reset requested for the address; got '%s'", accounts.requested)
	}
	if rr.Code != http.StatusSeeOther {
		t.Errorf("want status code %d; got %d", http.StatusSeeOther, rr.Code)
	}
	if sm.GetString(context.Background(), session.KeyFlash) == "" {
		t.Error("expected a flash message")
	}
}

func TestResetHandler(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		resetErr error
		wantCode int
		wantBody string
	}{
		{
			name:     "mismatched confirmation",
			form:     url.Values{"token": {"tok"}, "password": {"longenough"}, "confirm": {"different"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "do not match",
		},
		{
			name:     "expired token",
			form:     url.Values{"token": {"tok"}, "password": {"longenough"}, "confirm": {"longenough"}},
			resetErr: auth.ErrInvalidToken,
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "invalid or has expired",
		},
		{
			name:     "weak password",
			form:     url.Values{"token": {"tok"}, "password": {"short"}, "confirm": {"short"}},
			resetErr: auth.ErrWeakPassword,
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "at least 8",
		},
		{
			name:     "success",
			form:     url.Values{"token": {"tok"}, "password": {"longenough"}, "confirm": {"longenough"}},
			wantCode: http.StatusSeeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &mockAccounts{resetErr: tt.resetErr}
			h := NewAuthHandler(accounts, nil, newMockSession(), authTestView(t), logger.Nop())

			rr := httptest.NewRecorder()
			if appErr := h.handleReset(rr, postForm("/auth/reset", tt.form)); appErr != nil {
				t.Fatalf("unexpected error: %v", appErr.Error)
			}
			if rr.Code != tt.wantCode {
				t.Errorf("want status code %d; got %d", tt.wantCode, rr.Code)
			}
			if tt.wantBody != "" && !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("want body to contain %q; got %q", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestSSO_NotConfigured(t *testing.T) {
	h := NewAuthHandler(&mockAccounts{}, nil, newMockSession(), authTestView(t), logger.Nop())

	appErr := h.handleSSO(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/sso", nil))
	if appErr == nil || appErr.Code != http.StatusNotFound {
		t.Errorf("want a 404 when single sign-on is off; got %+v", appErr)
	}
}

func TestCallback_RejectsStateMismatch(t *testing.T) {
	h := NewAuthHandler(&mockAccounts{}, &auth.Authenticator{}, newMockSession(), authTestView(t), logger.Nop())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=x", nil)
	req.AddCookie(&http.Cookie{Name: "state", Value: "other"})
	appErr := h.handleCallback(httptest.NewRecorder(), req)

	if appErr == nil || appErr.Code != http.StatusBadRequest {
		t.Errorf("want a 400 for a mismatched state; got %+v", appErr)
	}
}
