package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"valour-site/internal/auth"
	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/middleware"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// AccountService signs admins in and resets their passwords.
type AccountService interface {
	SignIn(ctx context.Context, email, password string) (*data.AdminUser, error)
	FindByEmail(ctx context.Context, email string) (*data.AdminUser, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// SSOProvider is the optional OIDC sign-in. *auth.Authenticator satisfies it.
type SSOProvider interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	VerifyCode(ctx context.Context, code string) (*auth.Claims, error)
}

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	base
	accounts AccountService
	sso      SSOProvider
}

// NewAuthHandler creates a new AuthHandler. sso may be nil when single
// sign-on is not configured.
func NewAuthHandler(accounts AccountService, sso SSOProvider, sm session.Manager, v *view.View, log logger.Logger) *AuthHandler {
	return &AuthHandler{base: base{view: v, sm: sm, log: log}, accounts: accounts, sso: sso}
}

func (h *AuthHandler) loginPage(w http.ResponseWriter, r *http.Request, code int, email, msg string) *middleware.AppError {
	return h.render(w, r, code, "login.html", map[string]interface{}{
		"Email": email,
		"Error": msg,
		"SSO":   h.sso != nil,
	})
}

// handleLoginForm shows the sign-in form, or sends signed-in admins on.
func (h *AuthHandler) handleLoginForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.sm.GetString(r.Context(), session.KeySubject) != "" {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return nil
	}
	return h.loginPage(w, r, http.StatusOK, "", "")
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	email := strings.TrimSpace(r.FormValue("email"))
	user, err := h.accounts.SignIn(r.Context(), email, r.FormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return h.loginPage(w, r, http.StatusUnauthorized, email, "Invalid email or password.")
	}
	if err != nil {
		return serverError(err, "Failed to sign in")
	}
	if err := h.startSession(r, user); err != nil {
		return serverError(err, "Failed to start session")
	}
	http.Redirect(w, r, h.next(r), http.StatusSeeOther)
	return nil
}

// startSession renews the session token and records the admin identity.
func (h *AuthHandler) startSession(r *http.Request, user *data.AdminUser) error {
	ctx := r.Context()
	if err := h.sm.RenewToken(ctx); err != nil {
		return err
	}
	h.sm.Put(ctx, session.KeySubject, user.ID)
	h.sm.Put(ctx, session.KeyEmail, user.Email)
	h.log.Info("Admin signed in: " + user.Email)
	return nil
}

// next returns the admin page the visitor was sent away from, or /admin.
func (h *AuthHandler) next(r *http.Request) string {
	next := h.sm.PopString(r.Context(), session.KeyNext)
	if next == "/admin" || strings.HasPrefix(next, "/admin/") || strings.HasPrefix(next, "/admin?") {
		return next
	}
	return "/admin"
}

// handleLogout destroys the session and redirects home.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sm.Destroy(r.Context()); err != nil {
		h.log.Error(err, "Failed to destroy session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) handleForgotForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, http.StatusOK, "forgot.html", nil)
}

// handleForgot always reports success so accounts cannot be enumerated.
func (h *AuthHandler) handleForgot(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		return h.render(w, r, http.StatusUnprocessableEntity, "forgot.html", map[string]interface{}{"Error": "Enter your email address."})
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), email); err != nil {
		h.log.Error(err, "Password reset request failed")
	}
	h.redirect(w, r, "/auth/login", "If that address belongs to an admin, a reset link is on its way.")
	return nil
}

func (h *AuthHandler) handleResetForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, http.StatusOK, "reset.html", map[string]interface{}{"Token": r.URL.Query().Get("token")})
}

func (h *AuthHandler) handleReset(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	token := r.FormValue("token")
	password := r.FormValue("password")
	fail := func(msg string) *middleware.AppError {
		return h.render(w, r, http.StatusUnprocessableEntity, "reset.html", map[string]interface{}{"Token": token, "Error": msg})
	}
	if password != r.FormValue("confirm") {
		return fail("The passwords do not match.")
	}
	err := h.accounts.ResetPassword(r.Context(), token, password)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return fail("This reset link is invalid or has expired. Request a new one.")
	case errors.Is(err, auth.ErrWeakPassword):
		return fail("Use at least 8 characters.")
	case err != nil:
		return serverError(err, "Failed to reset password")
	}
	h.redirect(w, r, "/auth/login", "Your password has been changed. Sign in with the new one.")
	return nil
}

// handleSSO redirects to the OIDC provider with a random state kept in a
// short-lived cookie.
func (h *AuthHandler) handleSSO(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.sso == nil {
		return notFound(errors.New("single sign-on is not configured"))
	}
	state, err := randString(16)
	if err != nil {
		return serverError(err, "Failed to start sign-in")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.sso.AuthCodeURL(state), http.StatusFound)
	return nil
}

// handleCallback finishes OIDC sign-in. The verified email must belong to
// an existing admin account.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.sso == nil {
		return notFound(errors.New("single sign-on is not configured"))
	}
	stateCookie, err := r.Cookie("state")
	if err != nil || r.URL.Query().Get("state") != stateCookie.Value {
		return badRequest(errors.New("state did not match"))
	}
	http.SetCookie(w, &http.Cookie{Name: "state", Path: "/auth", MaxAge: -1})

	claims, err := h.sso.VerifyCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Sign-in could not be verified", Code: http.StatusUnauthorized}
	}
	user, err := h.accounts.FindByEmail(r.Context(), claims.Email)
	if err != nil {
		return serverError(err, "Failed to look up account")
	}
	if user == nil || !claims.EmailVerified {
		h.log.Warn("SSO sign-in refused for " + claims.Email)
		return h.loginPage(w, r, http.StatusForbidden, claims.Email, "That account is not an administrator.")
	}
	if err := h.startSession(r, user); err != nil {
		return serverError(err, "Failed to start session")
	}
	http.Redirect(w, r, h.next(r), http.StatusFound)
	return nil
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
