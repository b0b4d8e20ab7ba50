package view

import (
	"context"

	"valour-site/internal/service"
)

type contextKey string

const (
	siteKey  contextKey = "site"
	userKey  contextKey = "user"
	flashKey contextKey = "flash"
)

// User is the signed-in administrator shown in the layouts.
type User struct {
	Subject string
	Email   string
}

// WithSite stores the site settings for the layouts.
func WithSite(ctx context.Context, site service.SiteConfig) context.Context {
	return context.WithValue(ctx, siteKey, site)
}

// SiteFrom returns the site settings, or an empty config.
func SiteFrom(ctx context.Context) service.SiteConfig {
	site, _ := ctx.Value(siteKey).(service.SiteConfig)
	return site
}

// WithUser stores the signed-in user.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the signed-in user, or nil for visitors.
func UserFrom(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

// WithFlash stores a one-off banner message.
func WithFlash(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, flashKey, msg)
}

// FlashFrom returns the banner message, or "".
func FlashFrom(ctx context.Context) string {
	msg, _ := ctx.Value(flashKey).(string)
	return msg
}
