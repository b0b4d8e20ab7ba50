package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"valour-site/internal/logger"
	"valour-site/internal/view"
)

// AppError is returned by page handlers; Message is shown to the visitor.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a page handler that reports failures instead of writing them.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Error renders AppErrors and recovered panics as the site's error page.
func Error(log logger.Logger, v *view.View) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.With(map[string]interface{}{"path": r.URL.Path}).Error(err, "Panic recovered")
					writeErrorPage(w, r, v, http.StatusInternalServerError, "")
				}
			}()

			appErr := next(w, r)
			if appErr == nil {
				return
			}
			fields := map[string]interface{}{"status": appErr.Code, "path": r.URL.Path}
			if appErr.Code >= http.StatusInternalServerError {
				log.With(fields).Error(appErr.Error, appErr.Message)
			} else {
				log.With(fields).Debug(appErr.Message)
			}
			writeErrorPage(w, r, v, appErr.Code, appErr.Message)
		})
	}
}

// NotFound serves the 404 page for paths no route matches.
func NotFound(v *view.View) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorPage(w, r, v, http.StatusNotFound, "")
	})
}

func writeErrorPage(w http.ResponseWriter, r *http.Request, v *view.View, code int, msg string) {
	if msg == "" {
		msg = http.StatusText(code)
	}
	back, backLabel := "/", "Back to the home page"
	if strings.HasPrefix(r.URL.Path, "/admin") {
		back, backLabel = "/admin", "Back to the dashboard"
	}
	w.WriteHeader(code)
	v.Render(w, r, "error.html", map[string]interface{}{
		"StatusCode": code,
		"StatusText": msg,
		"BackURL":    back,
		"BackLabel":  backLabel,
	})
}
