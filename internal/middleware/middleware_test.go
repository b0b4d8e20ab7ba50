//go:build unit

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valour-site/internal/auth"
	"valour-site/internal/logger"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// mockSessionManager is an in-memory session.Manager.
type mockSessionManager struct {
	values map[string]interface{}
}

var _ session.Manager = (*mockSessionManager)(nil)

func newMockSession(values map[string]interface{}) *mockSessionManager {
	if values == nil {
		values = map[string]interface{}{}
	}
	return &mockSessionManager{values: values}
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
	m.values = map[string]interface{}{}
	return nil
}
func (m *mockSessionManager) RenewToken(ctx context.Context) error { return nil }

func testView(t *testing.T) *view.View {
	t.Helper()
	v, err := view.New(fstest.MapFS{
		"templates/layouts/base.html":        {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
		"templates/pages/access_denied.html": {Data: []byte(`{{template "base" .}}{{define "content"}}Access denied. <a href="{{.LoginURL}}">Sign in</a>{{end}}`)},
		"templates/pages/error.html":         {Data: []byte(`{{template "base" .}}{{define "content"}}{{.StatusCode}} {{.StatusText}} [{{.BackURL}}]{{end}}`)},
	})
	require.NoError(t, err)
	return v
}

func testGate(t *testing.T, sm session.Manager) http.Handler {
	t.Helper()
	e, err := auth.NewMemoryEnforcer()
	require.NoError(t, err)
	require.NoError(t, auth.SeedDefaultPolicies(e, logger.Nop()))

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := GetUserInfo(r.Context())
		w.Write([]byte("ok " + u.Role))
	})
	return Gate(e, sm, testView(t), logger.Nop())(ok)
}

func TestGate(t *testing.T) {
	tests := []struct {
		name     string
		session  map[string]interface{}
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{"visitor reads home", nil, "GET", "/", http.StatusOK, "ok anonymous"},
		{"visitor posts waiver", nil, "POST", "/waiver", http.StatusOK, "ok anonymous"},
		{"visitor opens admin", nil, "GET", "/admin", http.StatusUnauthorized, "Access denied"},
		{"visitor posts to admin", nil, "POST", "/admin/sponsors/new", http.StatusUnauthorized, "Sign in"},
		{"visitor deletes event", nil, "DELETE", "/events", http.StatusForbidden, "Forbidden"},
		{"admin opens admin", map[string]interface{}{session.KeySubject: "u1"}, "GET", "/admin/waivers", http.StatusOK, "ok admin"},
		{"admin reads public page", map[string]interface{}{session.KeySubject: "u1"}, "GET", "/sponsors", http.StatusOK, "ok admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testGate(t, newMockSession(tt.session))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestGate_RemembersDeniedAdminPage(t *testing.T) {
	sm := newMockSession(nil)
	h := testGate(t, sm)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/admin/waivers?status=paid", nil))
	assert.Equal(t, "/admin/waivers?status=paid", sm.values[session.KeyNext])
}

func TestError_RendersAppError(t *testing.T) {
	h := Error(logger.Nop(), testView(t))(func(w http.ResponseWriter, r *http.Request) *AppError {
		return &AppError{Error: errors.New("missing"), Message: "Page not found", Code: http.StatusNotFound}
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/p/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "404 Page not found")
}

func TestError_RecoversPanic(t *testing.T) {
	h := Error(logger.Nop(), testView(t))(func(w http.ResponseWriter, r *http.Request) *AppError {
		panic("boom")
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestNotFound_AdminPathsLinkToDashboard(t *testing.T) {
	h := NotFound(testView(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "404 Not Found [/]")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/admin/nowhere", nil))
	assert.Contains(t, rr.Body.String(), "[/admin]")
}

type stubSettings struct {
	cfg service.SiteConfig
	err error
}

func (s stubSettings) Load(ctx context.Context) (service.SiteConfig, error) { return s.cfg, s.err }

func TestSiteSettingsAndFlash(t *testing.T) {
	sm := newMockSession(map[string]interface{}{session.KeyFlash: "Thanks for your message"})
	var site service.SiteConfig
	var flash string
	h := SiteSettings(stubSettings{cfg: service.SiteConfig{ContactEmail: "info@example.com"}}, logger.Nop())(
		Flash(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site = view.SiteFrom(r.Context())
			flash = view.FlashFrom(r.Context())
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/contact", nil))
	assert.Equal(t, "info@example.com", site.ContactEmail)
	assert.Equal(t, "Thanks for your message", flash)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/contact", nil))
	assert.Empty(t, flash, "flash shown twice")
}

func TestSiteSettings_LoadFailureUsesDefaults(t *testing.T) {
	called := false
	h := SiteSettings(stubSettings{err: errors.New("db down")}, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, view.SiteFrom(r.Context()).FacebookURL)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.True(t, called)
}
