package service

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"valour-site/internal/data"
)

// Kind selects the input used for a field and how its value is parsed.
type Kind string

// Field kinds.
const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindRichText Kind = "richtext"
	KindURL      Kind = "url"
	KindEmail    Kind = "email"
	KindNumber   Kind = "number"
	KindDecimal  Kind = "decimal"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindTime     Kind = "time"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
	KindImage    Kind = "image"
	KindFile     Kind = "file"
	KindList     Kind = "list"
)

// Form layouts for date and time inputs.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
	TimeLayout     = "15:04"
)

// Field describes one editable column of an entity.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	Options  []string
	Help     string
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	stringListType = reflect.TypeOf(data.StringList{})
)

// fieldByColumn finds the struct field of v tagged db:"name".
func fieldByColumn(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("db") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Decode copies form values into dst, a pointer to a struct, for the listed
// fields. Values that cannot be parsed become field errors; the rest of dst
// is still filled so the form can be redisplayed.
func Decode(fields []Field, values url.Values, dst any) Result {
	res := OK()
	rv := reflect.ValueOf(dst).Elem()
	for _, f := range fields {
		fv, ok := fieldByColumn(rv, f.Name)
		if !ok {
			res.Add(f.Name, "is not a field of this record")
			continue
		}
		raw := values.Get(f.Name)
		if f.Kind != KindRichText && f.Kind != KindTextarea && f.Kind != KindList {
			raw = strings.TrimSpace(raw)
		}
		if err := setValue(fv, f.Kind, raw); err != nil {
			res.Add(f.Name, err.Error())
		}
		if f.Required && isBlank(fv) {
			res.Add(f.Name, "is required")
		}
	}
	return res
}

func setValue(fv reflect.Value, kind Kind, raw string) error {
	if fv.Kind() == reflect.Pointer {
		if strings.TrimSpace(raw) == "" {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		elem := reflect.New(fv.Type().Elem())
		if err := setValue(elem.Elem(), kind, raw); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}

	switch {
	case fv.Type() == timeType:
		if raw == "" {
			fv.Set(reflect.Zero(timeType))
			return nil
		}
		t, err := parseTime(kind, raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(t))
	case fv.Type() == stringListType:
		fv.Set(reflect.ValueOf(splitLines(raw)))
	case fv.Kind() == reflect.String:
		fv.SetString(raw)
	case fv.Kind() == reflect.Bool:
		fv.SetBool(raw == "on" || raw == "true" || raw == "1")
	case fv.CanInt():
		if raw == "" {
			fv.SetInt(0)
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("must be a whole number")
		}
		fv.SetInt(n)
	case fv.CanFloat():
		if raw == "" {
			fv.SetFloat(0)
			return nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		fv.SetFloat(n)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

func parseTime(kind Kind, raw string) (time.Time, error) {
	layouts := []string{DateTimeLayout, time.RFC3339, DateLayout}
	if kind == KindDate {
		layouts = []string{DateLayout, time.RFC3339}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if kind == KindDate {
		return time.Time{}, fmt.Errorf("must be a date (YYYY-MM-DD)")
	}
	return time.Time{}, fmt.Errorf("must be a date and time")
}

// splitLines returns the non-blank trimmed lines of s.
func splitLines(s string) data.StringList {
	out := data.StringList{}
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func isBlank(fv reflect.Value) bool {
	if fv.Kind() == reflect.Pointer {
		return fv.IsNil() || isBlank(fv.Elem())
	}
	if fv.Kind() == reflect.String {
		return strings.TrimSpace(fv.String()) == ""
	}
	if fv.Kind() == reflect.Bool {
		return false
	}
	return fv.IsZero()
}

// Encode renders the listed fields of src as form input values.
func Encode(fields []Field, src any) map[string]string {
	out := make(map[string]string, len(fields))
	rv := reflect.ValueOf(src)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	for _, f := range fields {
		fv, ok := fieldByColumn(rv, f.Name)
		if !ok {
			continue
		}
		out[f.Name] = formatValue(fv, f.Kind)
	}
	return out
}

func formatValue(fv reflect.Value, kind Kind) string {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return ""
		}
		return formatValue(fv.Elem(), kind)
	}
	switch {
	case fv.Type() == timeType:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		if kind == KindDate {
			return t.Format(DateLayout)
		}
		return t.Format(DateTimeLayout)
	case fv.Type() == stringListType:
		return strings.Join(fv.Interface().(data.StringList), "\n")
	case fv.Kind() == reflect.String:
		return fv.String()
	case fv.Kind() == reflect.Bool:
		if fv.Bool() {
			return "true"
		}
		return ""
	case fv.CanInt():
		return strconv.FormatInt(fv.Int(), 10)
	case fv.CanFloat():
		return strconv.FormatFloat(fv.Float(), 'f', -1, 64)
	}
	return fmt.Sprint(fv.Interface())
}
