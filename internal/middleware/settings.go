package middleware

import (
	"context"
	"net/http"

	"valour-site/internal/logger"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// SiteLoader returns the current site settings.
type SiteLoader interface {
	Load(ctx context.Context) (service.SiteConfig, error)
}

// SiteSettings loads the site settings used by the layouts (footer links,
// embeds) into the request context. A failed load renders with defaults.
func SiteSettings(settings SiteLoader, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site, err := settings.Load(r.Context())
			if err != nil {
				log.Error(err, "Failed to load site settings")
			}
			next.ServeHTTP(w, r.WithContext(view.WithSite(r.Context(), site)))
		})
	}
}

// Flash moves the one-off banner message from the session into the request
// context so the next rendered page shows it once.
func Flash(sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if msg := sm.PopString(r.Context(), session.KeyFlash); msg != "" {
				r = r.WithContext(view.WithFlash(r.Context(), msg))
			}
			next.ServeHTTP(w, r)
		})
	}
}
