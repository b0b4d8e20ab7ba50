package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"valour-site/internal/logger"
	"valour-site/internal/middleware"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// Submitter stores the public form submissions.
type Submitter interface {
	SubmitContact(ctx context.Context, f service.ContactForm) (service.Result, error)
	SubmitVideo(ctx context.Context, f service.VideoForm) (service.Result, error)
	SubmitWaiver(ctx context.Context, f service.WaiverForm) (service.Result, error)
}

// PublicHandler serves the public site.
type PublicHandler struct {
	base
	content *service.PublicService
	forms   Submitter
}

// NewPublicHandler creates a new PublicHandler with the given dependencies.
func NewPublicHandler(content *service.PublicService, forms Submitter, v *view.View, sm session.Manager, log logger.Logger) *PublicHandler {
	return &PublicHandler{base: base{view: v, sm: sm, log: log}, content: content, forms: forms}
}

func (h *PublicHandler) home(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	home, err := h.content.Home(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the home page")
	}
	return h.render(w, r, http.StatusOK, "home.html", map[string]interface{}{
		"Page":     home.Page,
		"Settings": home.Settings,
	})
}

func (h *PublicHandler) about(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.content.About(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the about page")
	}
	var sections []interface{}
	for _, slug := range service.AboutSlugs {
		if p, ok := pages[slug]; ok && p != nil {
			sections = append(sections, p)
		}
	}
	return h.render(w, r, http.StatusOK, "about.html", map[string]interface{}{"Sections": sections})
}

// page renders a slug-addressed content page.
func (h *PublicHandler) page(slug string) middleware.AppHandler {
	return func(w http.ResponseWriter, r *http.Request) *middleware.AppError {
		name := slug
		if name == "" {
			name = chi.URLParam(r, "slug")
		}
		p, err := h.content.Pages.ViewPage(r.Context(), name)
		if err != nil {
			return serverError(err, "Failed to load page")
		}
		if p == nil {
			return notFound(nil)
		}
		return h.render(w, r, http.StatusOK, "page.html", map[string]interface{}{"Page": p})
	}
}

func (h *PublicHandler) events(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	events, err := h.content.Events(r.Context())
	if err != nil {
		return serverError(err, "Failed to load events")
	}
	return h.render(w, r, http.StatusOK, "events.html", map[string]interface{}{"Events": events})
}

func (h *PublicHandler) event(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	p, err := h.content.EventPage(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the event page")
	}
	return h.render(w, r, http.StatusOK, "event.html", map[string]interface{}{"Page": p})
}

func (h *PublicHandler) calendar(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	days, err := h.content.Calendar(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the ride calendar")
	}
	return h.render(w, r, http.StatusOK, "calendar.html", map[string]interface{}{"Days": days})
}

func (h *PublicHandler) routes(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	routes, err := h.content.Routes(r.Context())
	if err != nil {
		return serverError(err, "Failed to load routes")
	}
	return h.render(w, r, http.StatusOK, "route.html", map[string]interface{}{"Routes": routes})
}

func (h *PublicHandler) sponsors(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	groups, err := h.content.Sponsors(r.Context())
	if err != nil {
		return serverError(err, "Failed to load sponsors")
	}
	return h.render(w, r, http.StatusOK, "sponsors.html", map[string]interface{}{"Groups": groups})
}

func (h *PublicHandler) photos(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	category := r.URL.Query().Get("category")
	photos, categories, err := h.content.Photos(r.Context(), category)
	if err != nil {
		return serverError(err, "Failed to load photos")
	}
	return h.render(w, r, http.StatusOK, "photos.html", map[string]interface{}{
		"Photos":     photos,
		"Categories": categories,
		"Category":   category,
	})
}

func (h *PublicHandler) press(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	articles, err := h.content.Press(r.Context())
	if err != nil {
		return serverError(err, "Failed to load press coverage")
	}
	return h.render(w, r, http.StatusOK, "press.html", map[string]interface{}{"Articles": articles})
}

func (h *PublicHandler) documents(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	category := r.URL.Query().Get("category")
	docs, categories, err := h.content.Documents(r.Context(), category)
	if err != nil {
		return serverError(err, "Failed to load documents")
	}
	return h.render(w, r, http.StatusOK, "documents.html", map[string]interface{}{
		"Documents":  docs,
		"Categories": categories,
		"Category":   category,
	})
}

func (h *PublicHandler) register(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	reg, err := h.content.Register(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the register page")
	}
	return h.render(w, r, http.StatusOK, "register.html", map[string]interface{}{
		"Instructions": reg.Instructions,
		"Settings":     reg.Settings,
	})
}

func (h *PublicHandler) fundraising(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, http.StatusOK, "fundraising.html", nil)
}

func (h *PublicHandler) privacy(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	p, err := h.content.PrivacyPolicy(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the privacy policy")
	}
	return h.render(w, r, http.StatusOK, "privacy.html", map[string]interface{}{"Page": p})
}

func (h *PublicHandler) blueberryMountain(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	p, err := h.content.BlueberryMountainPage(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the Blueberry Mountain page")
	}
	return h.render(w, r, http.StatusOK, "blueberry_mountain.html", map[string]interface{}{"Page": p})
}

func (h *PublicHandler) mpfbc(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	p, err := h.content.MPFBCPage(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the MPFBC page")
	}
	return h.render(w, r, http.StatusOK, "mpfbc.html", map[string]interface{}{"Page": p})
}

func (h *PublicHandler) visionValourRide(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	p, err := h.content.VisionValourRidePage(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the ride page")
	}
	return h.render(w, r, http.StatusOK, "vision_valour_ride.html", map[string]interface{}{"Page": p})
}

// --- public forms: POST-redirect-GET, 422 with the submitted values on error ---

func (h *PublicHandler) contactForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, http.StatusOK, "contact.html", map[string]interface{}{
		"Form":   service.ContactForm{},
		"Errors": service.OK(),
	})
}

func (h *PublicHandler) submitContact(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	var f service.ContactForm
	bound := bindForm(r.PostForm, &f)
	if !bound.Valid {
		return h.render(w, r, http.StatusUnprocessableEntity, "contact.html", map[string]interface{}{"Form": f, "Errors": bound})
	}
	res, err := h.forms.SubmitContact(r.Context(), f)
	data := map[string]interface{}{"Form": f, "Errors": res}
	if err != nil {
		data["Error"] = "Your message could not be sent. Please try again."
		return h.render(w, r, http.StatusInternalServerError, "contact.html", data)
	}
	if !res.Valid {
		return h.render(w, r, http.StatusUnprocessableEntity, "contact.html", data)
	}
	h.redirect(w, r, "/contact", "Thank you for your message! We'll get back to you soon.")
	return nil
}

func (h *PublicHandler) videoForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, http.StatusOK, "videos.html", map[string]interface{}{
		"Form":   service.VideoForm{},
		"Errors": service.OK(),
	})
}

func (h *PublicHandler) submitVideo(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	var f service.VideoForm
	bound := bindForm(r.PostForm, &f)
	if !bound.Valid {
		return h.render(w, r, http.StatusUnprocessableEntity, "videos.html", map[string]interface{}{"Form": f, "Errors": bound})
	}
	res, err := h.forms.SubmitVideo(r.Context(), f)
	data := map[string]interface{}{"Form": f, "Errors": res}
	if err != nil {
		data["Error"] = "Your video could not be submitted. Please try again."
		return h.render(w, r, http.StatusInternalServerError, "videos.html", data)
	}
	if !res.Valid {
		return h.render(w, r, http.StatusUnprocessableEntity, "videos.html", data)
	}
	h.redirect(w, r, "/videos", "Thanks for sharing! Your video will be reviewed shortly.")
	return nil
}

func (h *PublicHandler) waiverForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, http.StatusOK, "waiver.html", map[string]interface{}{
		"Form":   service.WaiverForm{},
		"Errors": service.OK(),
	})
}

func (h *PublicHandler) submitWaiver(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	var f service.WaiverForm
	bound := bindForm(r.PostForm, &f)
	if !bound.Valid {
		return h.render(w, r, http.StatusUnprocessableEntity, "waiver.html", map[string]interface{}{"Form": f, "Errors": bound})
	}
	res, err := h.forms.SubmitWaiver(r.Context(), f)
	data := map[string]interface{}{"Form": f, "Errors": res}
	if err != nil {
		data["Error"] = "Your waiver could not be submitted. Please try again."
		return h.render(w, r, http.StatusInternalServerError, "waiver.html", data)
	}
	if !res.Valid {
		data["Error"] = "Please correct the highlighted fields."
		return h.render(w, r, http.StatusUnprocessableEntity, "waiver.html", data)
	}
	h.redirect(w, r, "/waiver", "Your waiver has been submitted. Thank you, and see you on the road!")
	return nil
}
