package handler

import (
	"io/fs"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/middleware"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// Editors are the generic record editors behind the admin console.
type Editors struct {
	Pages     *service.Editor[data.Page]
	Events    *service.Editor[data.Event]
	Sponsors  *service.Editor[data.Sponsor]
	Photos    *service.Editor[data.Photo]
	Documents *service.Editor[data.Document]
	Press     *service.Editor[data.PressArticle]
	Routes    *service.Editor[data.Route]

	EventPage         *service.Editor[data.EventPage]
	BlueberryMountain *service.Editor[data.BlueberryMountainPage]
	MPFBC             *service.Editor[data.MPFBCPage]
	VisionValourRide  *service.Editor[data.VisionValourRidePage]
	PrivacyPolicy     *service.Editor[data.PrivacyPolicy]
}

// Deps is everything the router needs.
type Deps struct {
	Log      logger.Logger
	View     *view.View
	Sessions session.Manager
	Enforcer casbin.IEnforcer

	// CSRFKey enables CSRF protection on form posts when set (32 bytes).
	CSRFKey       []byte
	SecureCookies bool
	BaseURL       string

	Static     fs.FS
	UploadsDir string // served at /uploads when files are stored locally

	Pages        service.PageServicer
	Public       *service.PublicService
	Submissions  Submitter
	Accounts     AccountService
	SSO          SSOProvider
	Settings     *service.SettingsService
	Calendar     *service.CalendarService
	Instructions *service.InstructionsService
	Moderation   *service.ModerationService
	Editors      Editors

	Uploader       FileUploader
	Images         *service.ImageService
	MaxUploadBytes int64
	Notifier       WaiverNotifier
}

// NewRouter creates and configures a new chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.Requests(d.Log))
	r.Use(chimw.Recoverer)

	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	}
	if d.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadsDir))))
	}

	seo := NewSeoHandler(d.Pages, d.BaseURL, d.Log)
	r.Get("/robots.txt", seo.robotsHandler)
	r.Get("/sitemap.xml", seo.sitemapHandler)

	gate := middleware.Gate(d.Enforcer, d.Sessions, d.View, d.Log)
	e := middleware.Error(d.Log, d.View)
	r.NotFound(middleware.NotFound(d.View).ServeHTTP)

	// The notification function is called by scripts with its own CORS
	// contract, so it sits outside CSRF protection.
	fn := NewFunctionHandler(d.Notifier, d.Log)
	r.With(d.Sessions.LoadAndSave, gate).HandleFunc("/functions/v1/send-waiver-notification", fn.sendWaiverNotification)

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.LoadAndSave)
		if len(d.CSRFKey) > 0 {
			r.Use(csrfProtect(d.CSRFKey, d.SecureCookies))
		}
		r.Use(middleware.SiteSettings(d.Settings, d.Log))
		r.Use(middleware.Flash(d.Sessions))
		r.Use(gate)

		mountPublic(r, e, NewPublicHandler(d.Public, d.Submissions, d.View, d.Sessions, d.Log))
		mountAuth(r, e, newAuthHandler(d))
		mountAdmin(r, e, d)
	})

	return r
}

// csrfProtect wraps gorilla/csrf. Plain-HTTP requests are marked so the
// origin check does not demand TLS during local development.
func csrfProtect(key []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil && !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func newAuthHandler(d Deps) *AuthHandler {
	h := NewAuthHandler(d.Accounts, nil, d.Sessions, d.View, d.Log)
	if d.SSO != nil {
		h.sso = d.SSO
	}
	return h
}

func mountPublic(r chi.Router, e func(middleware.AppHandler) http.Handler, h *PublicHandler) {
	r.Method(http.MethodGet, "/", e(h.home))
	r.Method(http.MethodGet, "/about", e(h.about))
	r.Method(http.MethodGet, "/events", e(h.events))
	r.Method(http.MethodGet, "/event", e(h.event))
	r.Method(http.MethodGet, "/calendar", e(h.calendar))
	r.Method(http.MethodGet, "/route", e(h.routes))
	r.Method(http.MethodGet, "/sponsors", e(h.sponsors))
	r.Method(http.MethodGet, "/photos", e(h.photos))
	r.Method(http.MethodGet, "/press", e(h.press))
	r.Method(http.MethodGet, "/documents", e(h.documents))
	r.Method(http.MethodGet, "/register", e(h.register))
	r.Method(http.MethodGet, "/fundraising", e(h.fundraising))
	r.Method(http.MethodGet, "/privacy", e(h.privacy))
	r.Method(http.MethodGet, "/blueberry-mountain", e(h.blueberryMountain))
	r.Method(http.MethodGet, "/mpfbc", e(h.mpfbc))
	r.Method(http.MethodGet, "/vision-valour-ride", e(h.visionValourRide))
	r.Method(http.MethodGet, "/big-jim", e(h.page("big-jim")))
	r.Method(http.MethodGet, "/heart-of-the-ride", e(h.page("heart-of-the-ride")))
	r.Method(http.MethodGet, "/p/{slug}", e(h.page("")))

	r.Method(http.MethodGet, "/contact", e(h.contactForm))
	r.Method(http.MethodPost, "/contact", e(h.submitContact))
	r.Method(http.MethodGet, "/videos", e(h.videoForm))
	r.Method(http.MethodPost, "/videos", e(h.submitVideo))
	r.Method(http.MethodGet, "/waiver", e(h.waiverForm))
	r.Method(http.MethodPost, "/waiver", e(h.submitWaiver))
}

func mountAuth(r chi.Router, e func(middleware.AppHandler) http.Handler, h *AuthHandler) {
	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodGet, "/login", e(h.handleLoginForm))
		r.Method(http.MethodPost, "/login", e(h.handleLogin))
		r.HandleFunc("/logout", h.handleLogout)
		r.Method(http.MethodGet, "/forgot", e(h.handleForgotForm))
		r.Method(http.MethodPost, "/forgot", e(h.handleForgot))
		r.Method(http.MethodGet, "/reset", e(h.handleResetForm))
		r.Method(http.MethodPost, "/reset", e(h.handleReset))
		r.Method(http.MethodGet, "/oidc", e(h.handleSSO))
		r.Method(http.MethodGet, "/callback", e(h.handleCallback))
	})
}

func mountAdmin(r chi.Router, e func(middleware.AppHandler) http.Handler, d Deps) {
	b := base{view: d.View, sm: d.Sessions, log: d.Log}
	ed := d.Editors
	resources := []resource{
		newResourceHandler(ed.Pages, b),
		newResourceHandler(ed.Events, b),
		newResourceHandler(ed.Sponsors, b),
		newResourceHandler(ed.Photos, b),
		newResourceHandler(ed.Documents, b),
		newResourceHandler(ed.Press, b),
		newResourceHandler(ed.Routes, b),
	}
	features := []resource{
		newFeatureHandler(ed.EventPage, b),
		newFeatureHandler(ed.BlueberryMountain, b),
		newFeatureHandler(ed.MPFBC, b),
		newFeatureHandler(ed.VisionValourRide, b),
		newFeatureHandler(ed.PrivacyPolicy, b),
	}
	admin := &AdminHandler{
		base:         b,
		calendar:     d.Calendar,
		settings:     d.Settings,
		instructions: d.Instructions,
		moderation:   d.Moderation,
		resources:    resources,
		features:     features,
	}
	mod := &ModerationHandler{base: b, moderation: d.Moderation}
	up := NewUploadHandler(d.Uploader, d.Images, d.MaxUploadBytes, d.Log)

	r.Route("/admin", func(r chi.Router) {
		r.Method(http.MethodGet, "/", e(admin.dashboard))
		for _, res := range resources {
			res := res
			r.Route("/"+res.Name(), func(r chi.Router) { res.Mount(r, e) })
		}
		for _, f := range features {
			f := f
			r.Route("/feature/"+f.Name(), func(r chi.Router) { f.Mount(r, e) })
		}

		r.Route("/calendar", func(r chi.Router) {
			r.Method(http.MethodGet, "/", e(admin.calendarPage))
			r.Method(http.MethodPost, "/days", e(admin.addDay))
			r.Method(http.MethodPost, "/days/{id}", e(admin.updateDay))
			r.Method(http.MethodPost, "/days/{id}/delete", e(admin.deleteDay))
			r.Method(http.MethodPost, "/days/{id}/events", e(admin.addEvent))
			r.Method(http.MethodPost, "/events/{id}", e(admin.updateEvent))
			r.Method(http.MethodPost, "/events/{id}/delete", e(admin.deleteEvent))
			r.Method(http.MethodPost, "/events/{id}/move", e(admin.moveEvent))
		})
		r.Method(http.MethodGet, "/settings", e(admin.settingsPage))
		r.Method(http.MethodPost, "/settings", e(admin.saveSettings))
		r.Method(http.MethodGet, "/instructions", e(admin.instructionsPage))
		r.Method(http.MethodPost, "/instructions", e(admin.saveInstructions))

		r.Route("/contacts", func(r chi.Router) {
			r.Method(http.MethodGet, "/", e(mod.contacts))
			r.Method(http.MethodPost, "/{id}/read", e(mod.toggleContactRead))
			r.Method(http.MethodPost, "/{id}/delete", e(mod.deleteContact))
		})
		r.Route("/waivers", func(r chi.Router) {
			r.Method(http.MethodGet, "/", e(mod.waivers))
			r.Method(http.MethodGet, "/export.csv", e(mod.exportWaivers))
			r.Method(http.MethodGet, "/{id}", e(mod.waiver))
			r.Method(http.MethodPost, "/{id}", e(mod.updateWaiver))
			r.Method(http.MethodPost, "/{id}/delete", e(mod.deleteWaiver))
		})
		r.Route("/media", func(r chi.Router) {
			r.Method(http.MethodGet, "/", e(mod.media))
			r.Method(http.MethodPost, "/{id}/reviewed", e(mod.toggleMediaReviewed))
			r.Method(http.MethodPost, "/{id}/notes", e(mod.mediaNotes))
			r.Method(http.MethodPost, "/{id}/delete", e(mod.deleteMedia))
		})
		r.Route("/registrations", func(r chi.Router) {
			r.Method(http.MethodGet, "/", e(mod.registrations))
			r.Method(http.MethodGet, "/export.csv", e(mod.exportRegistrations))
			r.Method(http.MethodPost, "/{id}/delete", e(mod.deleteRegistration))
		})

		r.Post("/uploads/{bucket}", up.upload)
		r.Route("/richtext", func(r chi.Router) {
			r.Post("/images", up.insertImage)
			r.Post("/images/{id}", up.updateImage)
			r.Post("/images/{id}/delete", up.removeImage)
			r.Post("/list", up.listImages)
		})
	})
}
