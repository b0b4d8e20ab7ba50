//go:build unit

package view

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valour-site/internal/service"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": {Data: []byte(`{{define "base"}}<title>{{block "title" .}}Site{{end}}</title>{{if .Flash}}<div class="flash">{{.Flash}}</div>{{end}}{{template "content" .}}<footer>{{.Site.FacebookURL}}</footer>{{end}}`)},
		"templates/pages/home.html":   {Data: []byte(`{{template "base" .}}{{define "title"}}Home{{end}}{{define "content"}}<main>{{richtext .Body}}</main>{{end}}`)},
		"templates/admin/home.html":   {Data: []byte(`{{template "base" .}}{{define "content"}}admin {{with .User}}{{.Email}}{{end}}{{end}}`)},
	}
}

func TestView_RenderAddsGlobals(t *testing.T) {
	v, err := New(testFS())
	require.NoError(t, err)

	ctx := WithSite(context.Background(), service.SiteConfig{FacebookURL: "https://facebook.com/ride"})
	ctx = WithFlash(ctx, "Saved")
	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf, r, "home.html", map[string]interface{}{"Body": `<p>Hi</p><script>x()</script>`}))

	out := buf.String()
	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, `<div class="flash">Saved</div>`)
	assert.Contains(t, out, "<main><p>Hi</p></main>")
	assert.Contains(t, out, "https://facebook.com/ride")
}

func TestView_AdminTemplatesAreNamespaced(t *testing.T) {
	v, err := New(testFS())
	require.NoError(t, err)
	assert.True(t, v.Has("home.html"))
	assert.True(t, v.Has("admin/home.html"))

	ctx := WithUser(context.Background(), &User{Subject: "u1", Email: "admin@example.com"})
	r := httptest.NewRequest("GET", "/admin", nil).WithContext(ctx)
	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf, r, "admin/home.html", nil))
	assert.Contains(t, buf.String(), "admin admin@example.com")
}

func TestView_RenderUnknownTemplate(t *testing.T) {
	v, err := New(testFS())
	require.NoError(t, err)
	var buf bytes.Buffer
	err = v.Render(&buf, httptest.NewRequest("GET", "/", nil), "missing.html", nil)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestFuncs(t *testing.T) {
	d := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "June 14, 2025", formatDate(d))
	assert.Equal(t, "June 14, 2025", formatDate("2025-06-14"))
	assert.Equal(t, "", formatDate((*time.Time)(nil)))
	assert.Equal(t, "Jun 14, 2025 9:30 AM", formatDateTime(&d))

	s := "x"
	assert.Equal(t, "x", deref(&s))
	assert.Equal(t, "", deref((*string)(nil)))
	assert.True(t, has([]string{"meal", "ride"}, "ride"))
	assert.Equal(t, "Chase Truck", titleCase("chase_truck"))
	assert.Equal(t, []string{"a", "b"}, lines(" a\n\n b "))

	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, 1, m["a"])
	_, err = dict("odd")
	assert.Error(t, err)

	assert.True(t, strings.Contains(string(markdownHTML("**bold**")), "<strong>bold</strong>"))
}
