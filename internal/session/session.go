// Package session names the admin session keys and the subset of scs the
// handlers depend on.
package session

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// Session keys shared by the auth handlers, the gate and the views.
const (
	KeySubject = "user_subject" // admin user id, empty for visitors
	KeyEmail   = "user_email"
	KeyFlash   = "flash" // one-shot notice shown after a redirect
	KeyNext    = "next"  // admin page to return to after sign-in
)

// Manager is satisfied by *scs.SessionManager and by the test doubles.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	PopString(ctx context.Context, key string) string
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
	RenewToken(ctx context.Context) error
}

var _ Manager = (*scs.SessionManager)(nil)
