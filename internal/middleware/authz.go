package middleware

import (
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2"

	"valour-site/internal/auth"
	"valour-site/internal/logger"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// Gate creates the authorization middleware. The session decides the role:
// a signed-in subject is "admin", anyone else "anonymous". Casbin then
// decides whether that role may use the path and method.
//
// An anonymous visitor refused an admin page gets access_denied.html with
// 401 and a login link; every other refusal is a 403.
func Gate(e casbin.IEnforcer, sm session.Manager, v *view.View, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get the user's subject from the session.
			// If not present, it will be an empty string.
			subject := sm.GetString(r.Context(), session.KeySubject)
			user := &UserInfo{Subject: auth.RoleAnonymous, Role: auth.RoleAnonymous}
			ctx := r.Context()
			if subject != "" {
				user = &UserInfo{Subject: subject, Email: sm.GetString(ctx, session.KeyEmail), Role: auth.RoleAdmin}
				ctx = view.WithUser(ctx, &view.User{Subject: user.Subject, Email: user.Email})
			}
			r = r.WithContext(SetUserInfo(ctx, user))

			allowed, err := e.Enforce(user.Role, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization check failed")
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if !user.IsAdmin() && isAdminPath(r.URL.Path) {
				log.Debug("Anonymous request to " + r.URL.Path + " refused")
				if r.Method == http.MethodGet {
					sm.Put(r.Context(), session.KeyNext, r.URL.RequestURI())
				}
				w.WriteHeader(http.StatusUnauthorized)
				if err := v.Render(w, r, "access_denied.html", map[string]interface{}{"LoginURL": "/auth/login"}); err != nil {
					log.Error(err, "Failed to render access denied page")
				}
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func isAdminPath(p string) bool {
	return p == "/admin" || strings.HasPrefix(p, "/admin/")
}
