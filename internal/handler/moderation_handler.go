package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"valour-site/internal/middleware"
	"valour-site/internal/service"
)

// ModerationHandler serves the admin review screens for contact messages,
// waivers, shared videos and registrations.
type ModerationHandler struct {
	base
	moderation *service.ModerationService
}

// moderationError maps a missing record to 404.
func moderationError(err error, msg string) *middleware.AppError {
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	return serverError(err, msg)
}

func (h *ModerationHandler) contacts(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	rows, err := h.moderation.Contacts(r.Context())
	if err != nil {
		return serverError(err, "Failed to load contact messages")
	}
	return h.render(w, r, http.StatusOK, "admin/contacts.html", map[string]interface{}{"Contacts": rows})
}

func (h *ModerationHandler) toggleContactRead(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.ToggleContactRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		return moderationError(err, "Failed to update the message")
	}
	h.redirect(w, r, "/admin/contacts", "")
	return nil
}

func (h *ModerationHandler) deleteContact(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.DeleteContact(r.Context(), chi.URLParam(r, "id")); err != nil {
		return serverError(err, "Failed to delete the message")
	}
	h.redirect(w, r, "/admin/contacts", "Message deleted.")
	return nil
}

func (h *ModerationHandler) waivers(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = service.WaiverFilterAll
	}
	rows, counts, err := h.moderation.Waivers(r.Context(), status)
	if err != nil {
		return serverError(err, "Failed to load waivers")
	}
	return h.render(w, r, http.StatusOK, "admin/waivers.html", map[string]interface{}{
		"Waivers":  rows,
		"Counts":   counts,
		"Status":   status,
		"Statuses": service.PaymentStatuses,
	})
}

func (h *ModerationHandler) waiver(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.renderWaiver(w, r, http.StatusOK, service.OK())
}

func (h *ModerationHandler) renderWaiver(w http.ResponseWriter, r *http.Request, code int, res service.Result) *middleware.AppError {
	row, err := h.moderation.Waiver(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return moderationError(err, "Failed to load the waiver")
	}
	return h.render(w, r, code, "admin/waiver.html", map[string]interface{}{
		"Waiver":   row,
		"Statuses": service.PaymentStatuses,
		"Errors":   res,
	})
}

// updateWaiver applies the review fields posted from the waiver detail page.
// Only fields present in the form are changed.
func (h *ModerationHandler) updateWaiver(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, ok := r.PostForm["payment_status"]; ok {
		res, err := h.moderation.SetPaymentStatus(ctx, id, r.PostForm.Get("payment_status"))
		if err != nil {
			return moderationError(err, "Failed to update payment status")
		}
		if !res.Valid {
			return h.renderWaiver(w, r, http.StatusUnprocessableEntity, res)
		}
	}
	if _, ok := r.PostForm["packet_present"]; ok {
		if err := h.moderation.SetPacketIssued(ctx, id, r.PostForm.Get("packet_issued") == "on"); err != nil {
			return moderationError(err, "Failed to update packet status")
		}
	}
	if _, ok := r.PostForm["admin_notes"]; ok {
		if err := h.moderation.SetWaiverNotes(ctx, id, r.PostForm.Get("admin_notes")); err != nil {
			return moderationError(err, "Failed to save notes")
		}
	}
	back := r.PostForm.Get("back")
	if back != "/admin/waivers" && back != "/admin/waivers/"+id {
		back = "/admin/waivers/" + id
	}
	h.redirect(w, r, back, "Waiver updated.")
	return nil
}

func (h *ModerationHandler) deleteWaiver(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.DeleteWaiver(r.Context(), chi.URLParam(r, "id")); err != nil {
		return serverError(err, "Failed to delete the waiver")
	}
	h.redirect(w, r, "/admin/waivers", "Waiver deleted.")
	return nil
}

func (h *ModerationHandler) exportWaivers(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	status := r.URL.Query().Get("status")
	return sendCSV(w, "waivers", func(buf io.Writer) error {
		return h.moderation.ExportWaiversCSV(r.Context(), buf, status)
	})
}

func (h *ModerationHandler) exportRegistrations(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return sendCSV(w, "registrations", func(buf io.Writer) error {
		return h.moderation.ExportRegistrationsCSV(r.Context(), buf)
	})
}

// sendCSV builds the whole file before any header goes out, so a failed
// query still reaches the visitor as an error page.
func sendCSV(w http.ResponseWriter, name string, write func(io.Writer) error) *middleware.AppError {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return serverError(err, "Failed to export "+name)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`-`+time.Now().Format("2006-01-02")+`.csv"`)
	w.Write(buf.Bytes())
	return nil
}

func (h *ModerationHandler) media(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	rows, err := h.moderation.MediaSubmissions(r.Context())
	if err != nil {
		return serverError(err, "Failed to load media submissions")
	}
	return h.render(w, r, http.StatusOK, "admin/media.html", map[string]interface{}{"Submissions": rows})
}

func (h *ModerationHandler) toggleMediaReviewed(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.ToggleMediaReviewed(r.Context(), chi.URLParam(r, "id")); err != nil {
		return moderationError(err, "Failed to update the submission")
	}
	h.redirect(w, r, "/admin/media", "")
	return nil
}

func (h *ModerationHandler) mediaNotes(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.SetMediaNotes(r.Context(), chi.URLParam(r, "id"), r.FormValue("admin_notes")); err != nil {
		return moderationError(err, "Failed to save notes")
	}
	h.redirect(w, r, "/admin/media", "Notes saved.")
	return nil
}

func (h *ModerationHandler) deleteMedia(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.DeleteMedia(r.Context(), chi.URLParam(r, "id")); err != nil {
		return serverError(err, "Failed to delete the submission")
	}
	h.redirect(w, r, "/admin/media", "Submission deleted.")
	return nil
}

func (h *ModerationHandler) registrations(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	rows, err := h.moderation.Registrations(r.Context())
	if err != nil {
		return serverError(err, "Failed to load registrations")
	}
	return h.render(w, r, http.StatusOK, "admin/registrations.html", map[string]interface{}{"Registrations": rows})
}

func (h *ModerationHandler) deleteRegistration(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.moderation.DeleteRegistration(r.Context(), chi.URLParam(r, "id")); err != nil {
		return serverError(err, "Failed to delete the registration")
	}
	h.redirect(w, r, "/admin/registrations", "Registration deleted.")
	return nil
}
