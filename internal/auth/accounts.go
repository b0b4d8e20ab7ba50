package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/notify"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken covers unknown, used and expired reset tokens alike.
	ErrInvalidToken = errors.New("reset link is invalid or has expired")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password is too short")
	// ErrEmailTaken is returned when creating an account for a known email.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrNoIDToken is returned when the OIDC token response has no id_token.
	ErrNoIDToken = errors.New("no id_token field in oauth2 token")
)

const (
	// MinPasswordLength is the shortest accepted admin password.
	MinPasswordLength = 8
	resetTokenTTL     = time.Hour
)

// Accounts manages admin users and password resets.
type Accounts struct {
	users   *data.Table[data.AdminUser]
	resets  *data.Table[data.PasswordReset]
	sender  notify.Sender
	from    string
	baseURL string
	log     logger.Logger
	now     func() time.Time
}

// NewAccounts creates the account service. Reset links point at baseURL.
func NewAccounts(users *data.Table[data.AdminUser], resets *data.Table[data.PasswordReset], sender notify.Sender, from, baseURL string, log logger.Logger) *Accounts {
	return &Accounts{
		users:   users,
		resets:  resets,
		sender:  sender,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// CreateAdmin adds an admin account.
func (a *Accounts) CreateAdmin(ctx context.Context, email, password string) (*data.AdminUser, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	existing, err := a.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &data.AdminUser{Email: email, PasswordHash: hash}
	if err := a.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail returns the account for email, or nil.
func (a *Accounts) FindByEmail(ctx context.Context, email string) (*data.AdminUser, error) {
	return a.users.First(ctx, data.Filter{data.Eq("email", normalizeEmail(email))})
}

// SignIn checks an email and password pair.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (*data.AdminUser, error) {
	user, err := a.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset emails a single-use reset link when email belongs to
// an account. Unknown emails succeed silently so accounts cannot be enumerated.
func (a *Accounts) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := a.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		a.log.Debug("Password reset requested for unknown email")
		return nil
	}

	token, err := newToken()
	if err != nil {
		return err
	}
	reset := &data.PasswordReset{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: a.now().UTC().Add(resetTokenTTL),
	}
	if err := a.resets.Insert(ctx, reset); err != nil {
		return err
	}

	link := a.baseURL + "/auth/reset?token=" + url.QueryEscape(token)
	_, err = a.sender.Send(ctx, notify.SendRequest{
		From:    a.from,
		To:      []string{user.Email},
		Subject: "Reset your Vision & Valour admin password",
		HTML: `<p>Someone asked to reset the password for this admin account.</p>` +
			`<p><a href="` + link + `">Choose a new password</a>. The link works once and expires in one hour.</p>` +
			`<p>If this wasn't you, you can ignore this email.</p>`,
	})
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
func (a *Accounts) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidToken
	}
	reset, err := a.resets.First(ctx, data.Filter{data.Eq("token_hash", hashToken(token))})
	if err != nil {
		return err
	}
	now := a.now().UTC()
	if reset == nil || reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
		return ErrInvalidToken
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	// Burn the token first so a failure below cannot leave it reusable.
	n, err := a.resets.Update(ctx, data.Filter{data.Eq("id", reset.ID), data.Eq("used_at", nil)}, data.Patch{"used_at": now})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidToken
	}
	_, err = a.users.Update(ctx, data.ByID(reset.UserID), data.Patch{"password_hash": hash, "updated_at": now})
	return err
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
