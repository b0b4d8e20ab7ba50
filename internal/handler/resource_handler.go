package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"valour-site/internal/middleware"
	"valour-site/internal/service"
)

// resource is an admin-editable collection mounted under /admin.
type resource interface {
	Name() string
	Title() string
	Mount(r chi.Router, e func(middleware.AppHandler) http.Handler)
}

type listColumn struct {
	Name  string
	Label string
}

// resourceHandler serves list, create, edit and delete screens for one
// entity through its generic editor.
type resourceHandler[T any] struct {
	base
	editor *service.Editor[T]
}

func newResourceHandler[T any](editor *service.Editor[T], b base) *resourceHandler[T] {
	return &resourceHandler[T]{base: b, editor: editor}
}

func (h *resourceHandler[T]) Name() string  { return h.editor.Schema().Name }
func (h *resourceHandler[T]) Title() string { return h.editor.Schema().Title }

func (h *resourceHandler[T]) path() string { return "/admin/" + h.Name() }

// Mount registers the resource routes on r, which is rooted at /admin/{name}.
func (h *resourceHandler[T]) Mount(r chi.Router, e func(middleware.AppHandler) http.Handler) {
	r.Method(http.MethodGet, "/", e(h.list))
	r.Method(http.MethodGet, "/new", e(h.edit))
	r.Method(http.MethodPost, "/new", e(h.save))
	r.Method(http.MethodGet, "/{id}/edit", e(h.edit))
	r.Method(http.MethodPost, "/{id}", e(h.save))
	r.Method(http.MethodPost, "/{id}/delete", e(h.delete))
}

func (h *resourceHandler[T]) list(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	schema := h.editor.Schema()
	rows, err := h.editor.List(r.Context())
	if err != nil {
		return serverError(err, "Failed to load "+schema.Title)
	}
	items := make([]interface{}, len(rows))
	for i := range rows {
		items[i] = &rows[i]
	}
	cols := make([]listColumn, 0, len(schema.ListColumns))
	for _, c := range schema.ListColumns {
		label := c
		if f, ok := schema.Field(c); ok {
			label = f.Label
		}
		cols = append(cols, listColumn{Name: c, Label: label})
	}
	return h.render(w, r, http.StatusOK, "admin/list.html", map[string]interface{}{
		"Title":     schema.Title,
		"Base":      h.path(),
		"Columns":   cols,
		"Rows":      items,
		"Creatable": schema.Creatable,
		"Deletable": schema.Deletable,
	})
}

func (h *resourceHandler[T]) edit(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	if id == "" && !h.editor.Schema().Creatable {
		return notFound(service.ErrNotCreatable)
	}
	draft, err := h.editor.Draft(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	if err != nil {
		return serverError(err, "Failed to load "+h.editor.Schema().Singular)
	}
	return h.renderForm(w, r, http.StatusOK, id, draft, service.OK(), "")
}

func (h *resourceHandler[T]) save(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	id := chi.URLParam(r, "id")
	schema := h.editor.Schema()

	draft, err := h.editor.Draft(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		return notFound(err)
	}
	if err != nil {
		return serverError(err, "Failed to load "+schema.Singular)
	}
	if decoded := h.editor.Decode(r.PostForm, draft); !decoded.Valid {
		return h.renderForm(w, r, http.StatusUnprocessableEntity, id, draft, decoded, "")
	}

	out, err := h.editor.Save(r.Context(), id, draft)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return notFound(err)
	case err != nil:
		return h.renderForm(w, r, http.StatusInternalServerError, id, draft, out.Result, "Could not save the "+schema.Singular+": "+err.Error())
	case !out.Result.Valid:
		return h.renderForm(w, r, http.StatusUnprocessableEntity, id, draft, out.Result, "")
	}

	msg := "Saved " + schema.Singular + "."
	if out.Created {
		msg = "Created " + schema.Singular + "."
	}
	h.redirect(w, r, h.path(), msg)
	return nil
}

func (h *resourceHandler[T]) delete(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	schema := h.editor.Schema()
	err := h.editor.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrNotDeletable) {
		return &middleware.AppError{Error: err, Message: "This record cannot be deleted", Code: http.StatusMethodNotAllowed}
	}
	if err != nil {
		return serverError(err, "Failed to delete "+schema.Singular)
	}
	h.redirect(w, r, h.path(), "Deleted "+schema.Singular+".")
	return nil
}

func (h *resourceHandler[T]) renderForm(w http.ResponseWriter, r *http.Request, code int, id string, draft *T, res service.Result, banner string) *middleware.AppError {
	schema := h.editor.Schema()
	action := h.path() + "/new"
	if id != "" {
		action = h.path() + "/" + id
	}
	heading := "New " + schema.Singular
	if id != "" && schema.Label != nil {
		heading = schema.Label(draft)
	}
	return h.render(w, r, code, "admin/form.html", map[string]interface{}{
		"Title":     schema.Title,
		"Heading":   heading,
		"Back":      h.path(),
		"Action":    action,
		"ID":        id,
		"Fields":    schema.Fields,
		"Values":    service.Encode(schema.Fields, draft),
		"Errors":    res,
		"Error":     banner,
		"Deletable": schema.Deletable && id != "",
	})
}

// featureHandler edits a singleton page such as the privacy policy. The
// seeded row is the only one; there is no list, create or delete.
type featureHandler[T any] struct {
	base
	editor *service.Editor[T]
}

func newFeatureHandler[T any](editor *service.Editor[T], b base) *featureHandler[T] {
	return &featureHandler[T]{base: b, editor: editor}
}

func (h *featureHandler[T]) Name() string  { return h.editor.Schema().Name }
func (h *featureHandler[T]) Title() string { return h.editor.Schema().Title }

func (h *featureHandler[T]) path() string { return "/admin/feature/" + h.Name() }

// Mount registers the routes on r, rooted at /admin/feature/{name}.
func (h *featureHandler[T]) Mount(r chi.Router, e func(middleware.AppHandler) http.Handler) {
	r.Method(http.MethodGet, "/", e(h.edit))
	r.Method(http.MethodPost, "/", e(h.save))
}

func (h *featureHandler[T]) edit(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	row, err := h.editor.Singleton(r.Context())
	if err != nil {
		return serverError(err, "Failed to load "+h.Title())
	}
	if row == nil {
		return notFound(service.ErrNotFound)
	}
	return h.renderForm(w, r, http.StatusOK, row, service.OK(), "")
}

func (h *featureHandler[T]) save(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	row, err := h.editor.Singleton(r.Context())
	if err != nil {
		return serverError(err, "Failed to load "+h.Title())
	}
	if row == nil {
		return notFound(service.ErrNotFound)
	}
	if decoded := h.editor.Decode(r.PostForm, row); !decoded.Valid {
		return h.renderForm(w, r, http.StatusUnprocessableEntity, row, decoded, "")
	}
	out, err := h.editor.Save(r.Context(), service.IDOf(row), row)
	if err != nil {
		return h.renderForm(w, r, http.StatusInternalServerError, row, out.Result, "Could not save: "+err.Error())
	}
	if !out.Result.Valid {
		return h.renderForm(w, r, http.StatusUnprocessableEntity, row, out.Result, "")
	}
	h.redirect(w, r, h.path(), "Saved "+h.Title()+".")
	return nil
}

func (h *featureHandler[T]) renderForm(w http.ResponseWriter, r *http.Request, code int, row *T, res service.Result, banner string) *middleware.AppError {
	schema := h.editor.Schema()
	return h.render(w, r, code, "admin/form.html", map[string]interface{}{
		"Title":   schema.Title,
		"Heading": schema.Title,
		"Back":    "/admin",
		"Action":  h.path(),
		"ID":      service.IDOf(row),
		"Fields":  schema.Fields,
		"Values":  service.Encode(schema.Fields, row),
		"Errors":  res,
		"Error":   banner,
	})
}
