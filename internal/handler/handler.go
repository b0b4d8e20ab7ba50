// Package handler holds the HTTP handlers of the public site and the admin
// console, and the router that wires them to the middleware stack.
package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"valour-site/internal/logger"
	"valour-site/internal/middleware"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

// base carries what every handler needs to render and redirect.
type base struct {
	view *view.View
	sm   session.Manager
	log  logger.Logger
}

// render writes template name with the given status.
func (b base) render(w http.ResponseWriter, r *http.Request, code int, name string, data map[string]interface{}) *middleware.AppError {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	if err := b.view.Render(w, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render " + name, Code: http.StatusInternalServerError}
	}
	return nil
}

// redirect stores a flash banner for the next page and redirects with 303.
func (b base) redirect(w http.ResponseWriter, r *http.Request, to, flash string) {
	if flash != "" {
		b.sm.Put(r.Context(), session.KeyFlash, flash)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func serverError(err error, msg string) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: msg, Code: http.StatusInternalServerError}
}

func notFound(err error) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
}

func badRequest(err error) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: "Bad request", Code: http.StatusBadRequest}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// bindForm copies form values into the struct dst points to, by `form`
// tag. Strings, bools, ints and string slices are supported; untagged
// struct fields are bound recursively. A nested struct tagged
// `form_if:"flag"` is bound only when the checkbox flag is on and is left
// zero otherwise. Unparseable numbers become field errors.
func bindForm(values url.Values, dst interface{}) service.Result {
	res := service.OK()
	bindValue(values, reflect.ValueOf(dst).Elem(), &res)
	return res
}

func checked(v string) bool {
	return v == "on" || v == "true" || v == "1"
}

func bindValue(values url.Values, rv reflect.Value, res *service.Result) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), rv.Field(i)
		name := sf.Tag.Get("form")
		if name == "" {
			if fv.Kind() != reflect.Struct {
				continue
			}
			if flag := sf.Tag.Get("form_if"); flag != "" && !checked(values.Get(flag)) {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			bindValue(values, fv, res)
			continue
		}
		switch fv.Kind() {
		case reflect.String:
			fv.SetString(values.Get(name))
		case reflect.Bool:
			fv.SetBool(checked(values.Get(name)))
		case reflect.Int, reflect.Int64:
			raw := strings.TrimSpace(values.Get(name))
			if raw == "" {
				fv.SetInt(0)
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				res.Add(name, "must be a whole number")
				continue
			}
			fv.SetInt(n)
		case reflect.Slice:
			if fv.Type().Elem().Kind() == reflect.String {
				fv.Set(reflect.ValueOf(append([]string(nil), values[name]...)))
			}
		}
	}
}
