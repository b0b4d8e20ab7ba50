package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"valour-site/internal/middleware"
	"valour-site/internal/service"
)

// AdminHandler serves the dashboard and the admin screens that are not
// plain record editors: ride calendar, site settings and registration
// instructions.
type AdminHandler struct {
	base
	calendar     *service.CalendarService
	settings     *service.SettingsService
	instructions *service.InstructionsService
	moderation   *service.ModerationService
	resources    []resource
	features     []resource
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	contacts, media, waivers, err := h.moderation.UnreadCounts(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the dashboard")
	}
	return h.render(w, r, http.StatusOK, "admin/dashboard.html", map[string]interface{}{
		"Resources":       h.resources,
		"Features":        h.features,
		"UnreadContacts":  contacts,
		"UnreviewedMedia": media,
		"PendingWaivers":  waivers,
	})
}

// --- ride calendar ---

func (h *AdminHandler) calendarPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.renderCalendar(w, r, http.StatusOK, "", service.OK(), nil)
}

// renderCalendar shows every day with inline forms. target names the day or
// event whose form failed; values are what the admin submitted for it.
func (h *AdminHandler) renderCalendar(w http.ResponseWriter, r *http.Request, code int, target string, res service.Result, values interface{}) *middleware.AppError {
	days, err := h.calendar.Schedule(r.Context())
	if err != nil {
		return serverError(err, "Failed to load the ride calendar")
	}
	return h.render(w, r, code, "admin/calendar.html", map[string]interface{}{
		"Days":       days,
		"Categories": service.CalendarCategories,
		"Target":     target,
		"Errors":     res,
		"Submitted":  values,
	})
}

func (h *AdminHandler) addDay(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	day, err := h.calendar.AddDay(r.Context())
	if err != nil {
		return serverError(err, "Failed to add a ride day")
	}
	h.redirect(w, r, "/admin/calendar#day-"+day.ID, "Added "+day.Title+".")
	return nil
}

func (h *AdminHandler) updateDay(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	id := chi.URLParam(r, "id")
	var f service.DayForm
	if bound := bindForm(r.PostForm, &f); !bound.Valid {
		return h.renderCalendar(w, r, http.StatusUnprocessableEntity, id, bound, f)
	}
	res, err := h.calendar.UpdateDay(r.Context(), id, f)
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	if err != nil {
		return serverError(err, "Failed to save the ride day")
	}
	if !res.Valid {
		return h.renderCalendar(w, r, http.StatusUnprocessableEntity, id, res, f)
	}
	h.redirect(w, r, "/admin/calendar#day-"+id, "Saved "+f.Title+".")
	return nil
}

func (h *AdminHandler) deleteDay(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.calendar.DeleteDay(r.Context(), chi.URLParam(r, "id")); err != nil {
		return serverError(err, "Failed to delete the ride day")
	}
	h.redirect(w, r, "/admin/calendar", "Deleted the day and its events.")
	return nil
}

func (h *AdminHandler) addEvent(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	dayID := chi.URLParam(r, "id")
	var f service.EventForm
	bindForm(r.PostForm, &f)
	res, err := h.calendar.AddEvent(r.Context(), dayID, f)
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	if err != nil {
		return serverError(err, "Failed to add the event")
	}
	if !res.Valid {
		return h.renderCalendar(w, r, http.StatusUnprocessableEntity, "new-"+dayID, res, f)
	}
	h.redirect(w, r, "/admin/calendar#day-"+dayID, "Added "+f.Title+".")
	return nil
}

func (h *AdminHandler) updateEvent(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	id := chi.URLParam(r, "id")
	var f service.EventForm
	bindForm(r.PostForm, &f)
	res, err := h.calendar.UpdateEvent(r.Context(), id, f)
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	if err != nil {
		return serverError(err, "Failed to save the event")
	}
	if !res.Valid {
		return h.renderCalendar(w, r, http.StatusUnprocessableEntity, id, res, f)
	}
	h.redirect(w, r, "/admin/calendar#event-"+id, "Saved "+f.Title+".")
	return nil
}

func (h *AdminHandler) deleteEvent(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.calendar.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		return serverError(err, "Failed to delete the event")
	}
	h.redirect(w, r, "/admin/calendar", "Deleted the event.")
	return nil
}

func (h *AdminHandler) moveEvent(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	up := r.FormValue("direction") == "up"
	err := h.calendar.MoveEvent(r.Context(), id, up)
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	if errors.Is(err, service.ErrTimedEventOrder) {
		h.redirect(w, r, "/admin/calendar#event-"+id, "Events with a start time are ordered by it. Change the time to move it.")
		return nil
	}
	if err != nil {
		return serverError(err, "Failed to move the event")
	}
	h.redirect(w, r, "/admin/calendar#event-"+id, "")
	return nil
}

// --- site settings ---

type settingRow struct {
	Key         string
	Description string
	Value       string
}

func (h *AdminHandler) settingsPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	cfg, err := h.settings.Load(r.Context())
	if err != nil {
		return serverError(err, "Failed to load site settings")
	}
	values := make(map[string]string, len(service.SettingKeys))
	for _, k := range service.SettingKeys {
		values[string(k)] = cfg.Get(k)
	}
	return h.renderSettings(w, r, http.StatusOK, values, service.OK(), "")
}

func (h *AdminHandler) renderSettings(w http.ResponseWriter, r *http.Request, code int, values map[string]string, res service.Result, banner string) *middleware.AppError {
	rows := make([]settingRow, 0, len(service.SettingKeys))
	for _, k := range service.SettingKeys {
		rows = append(rows, settingRow{Key: string(k), Description: k.Description(), Value: values[string(k)]})
	}
	return h.render(w, r, code, "admin/settings.html", map[string]interface{}{
		"Settings": rows,
		"Errors":   res,
		"Error":    banner,
	})
}

// saveSettings writes every submitted key. Invalid values are reported
// together; valid ones are still saved.
func (h *AdminHandler) saveSettings(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	values := map[string]string{}
	res := service.OK()
	for _, k := range service.SettingKeys {
		v, ok := r.PostForm[string(k)]
		if !ok {
			continue
		}
		values[string(k)] = strings.TrimSpace(v[0])
		one, err := h.settings.Set(r.Context(), k, v[0])
		if err != nil {
			return h.renderSettings(w, r, http.StatusInternalServerError, values, res, "Could not save settings: "+err.Error())
		}
		res.Merge(one)
	}
	if !res.Valid {
		return h.renderSettings(w, r, http.StatusUnprocessableEntity, values, res, "")
	}
	h.redirect(w, r, "/admin/settings", "Settings saved.")
	return nil
}

// --- registration instructions ---

func (h *AdminHandler) instructionsPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	f, err := h.instructions.Form(r.Context())
	if err != nil {
		return serverError(err, "Failed to load registration instructions")
	}
	return h.renderInstructions(w, r, http.StatusOK, f, service.OK(), "")
}

func (h *AdminHandler) renderInstructions(w http.ResponseWriter, r *http.Request, code int, f service.InstructionsForm, res service.Result, banner string) *middleware.AppError {
	return h.render(w, r, code, "admin/instructions.html", map[string]interface{}{
		"Form":   f,
		"Items":  strings.Join(f.Items, "\n"),
		"Errors": res,
		"Error":  banner,
	})
}

func (h *AdminHandler) saveInstructions(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	var f service.InstructionsForm
	// The textarea posts every instruction as one value, a line each.
	bindForm(r.PostForm, &f)
	res, err := h.instructions.Save(r.Context(), f)
	if err != nil {
		return h.renderInstructions(w, r, http.StatusInternalServerError, f, res, "Could not save: "+err.Error())
	}
	if !res.Valid {
		return h.renderInstructions(w, r, http.StatusUnprocessableEntity, f, res, "")
	}
	h.redirect(w, r, "/admin/instructions", "Registration instructions saved.")
	return nil
}
