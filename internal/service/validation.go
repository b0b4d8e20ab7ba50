package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned when the record being edited no longer exists.
var ErrNotFound = errors.New("record not found")

// Result is the outcome of validating a draft or form. Field errors are keyed
// by column or form field name.
type Result struct {
	Valid       bool
	FieldErrors map[string]string
}

// OK returns a passing Result.
func OK() Result {
	return Result{Valid: true, FieldErrors: map[string]string{}}
}

// Add records a field error. The first error for a field wins.
func (r *Result) Add(field, msg string) {
	if r.FieldErrors == nil {
		r.FieldErrors = map[string]string{}
	}
	if _, ok := r.FieldErrors[field]; !ok {
		r.FieldErrors[field] = msg
	}
	r.Valid = false
}

// Merge copies other's errors into r.
func (r *Result) Merge(other Result) {
	for f, msg := range other.FieldErrors {
		r.Add(f, msg)
	}
}

// Error returns the field error for name, or "".
func (r Result) Error(name string) string {
	return r.FieldErrors[name]
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their column or form name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"db", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// Check validates the struct tags of v.
func Check(v any) Result {
	res := OK()
	err := validate.Struct(v)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Add("_", err.Error())
		return res
	}
	for _, fe := range verrs {
		res.Add(fe.Field(), message(fe))
	}
	return res
}

// varMessage describes an error from validate.Var.
func varMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return message(verrs[0])
	}
	return "is invalid"
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return "is invalid"
	}
}
