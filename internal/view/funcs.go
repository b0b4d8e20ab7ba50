package view

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"valour-site/internal/richtext"
	"valour-site/internal/service"
)

const displayDate = "January 2, 2006"

var funcs = template.FuncMap{
	"richtext":      richHTML,
	"markdown":      markdownHTML,
	"embed":         embedHTML,
	"date":          formatDate,
	"datetime":      formatDateTime,
	"deref":         deref,
	"has":           has,
	"join":          strings.Join,
	"lines":         lines,
	"idOf":          service.IDOf,
	"categoryTitle": service.SponsorCategoryTitle,
	"column":        column,
	"dict":          dict,
	"add":           func(a, b int) int { return a + b },
	"title":         titleCase,
}

// richHTML sanitises stored rich text and marks it safe.
func richHTML(s string) template.HTML {
	return template.HTML(richtext.Sanitize(s))
}

// embedHTML keeps the iframe of an admin-supplied widget snippet.
func embedHTML(s string) template.HTML {
	return template.HTML(richtext.SanitizeEmbed(s))
}

func markdownHTML(s string) template.HTML {
	out, err := richtext.Markdown(s)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(out)
}

// formatDate accepts a time, a *time or a YYYY-MM-DD string.
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(displayDate)
	case *time.Time:
		if t == nil {
			return ""
		}
		return formatDate(*t)
	case string:
		parsed, err := time.Parse(service.DateLayout, t)
		if err != nil {
			return t
		}
		return parsed.Format(displayDate)
	case *string:
		if t == nil {
			return ""
		}
		return formatDate(*t)
	}
	return fmt.Sprint(v)
}

func formatDateTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006 3:04 PM")
	case *time.Time:
		if t == nil {
			return ""
		}
		return formatDateTime(*t)
	}
	return formatDate(v)
}

func deref(v any) any {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return ""
		}
		return *p
	case *int:
		if p == nil {
			return ""
		}
		return *p
	case *float64:
		if p == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *p)
	}
	return v
}

func has(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// column renders one column of a record for an admin list table.
func column(rec any, name string) string {
	return service.Encode([]service.Field{{Name: name, Kind: service.KindText}}, rec)[name]
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict needs key/value pairs")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
