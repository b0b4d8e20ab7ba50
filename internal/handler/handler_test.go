//go:build unit

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valour-site/internal/logger"
	"valour-site/internal/notify"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/view"
)

func TestBindForm(t *testing.T) {
	type inner struct {
		Note string `form:"note"`
	}
	type target struct {
		Name   string   `form:"name"`
		Age    int      `form:"age"`
		Minor  bool     `form:"minor"`
		Agreed bool     `form:"agreed"`
		Tags   []string `form:"tags"`
		Nested inner
	}

	var got target
	res := bindForm(url.Values{
		"name":   {"Jim"},
		"age":    {" 42 "},
		"minor":  {"on"},
		"agreed": {"no"},
		"tags":   {"ride", "meal"},
		"note":   {"hello"},
	}, &got)

	require.True(t, res.Valid)
	assert.Equal(t, target{
		Name:   "Jim",
		Age:    42,
		Minor:  true,
		Agreed: false,
		Tags:   []string{"ride", "meal"},
		Nested: inner{Note: "hello"},
	}, got)
}

func TestBindForm_BadNumber(t *testing.T) {
	var got struct {
		Age int `form:"age"`
	}
	res := bindForm(url.Values{"age": {"forty"}}, &got)

	assert.False(t, res.Valid)
	assert.Equal(t, "must be a whole number", res.Error("age"))
	assert.Zero(t, got.Age)
}

func TestBindForm_GatedStruct(t *testing.T) {
	type inner struct {
		Age int `form:"inner_age"`
	}
	type target struct {
		On    bool  `form:"on"`
		Inner inner `form_if:"on"`
	}

	t.Run("flag off skips the block", func(t *testing.T) {
		got := target{Inner: inner{Age: 9}}
		res := bindForm(url.Values{"inner_age": {"junk"}}, &got)

		assert.True(t, res.Valid)
		assert.Equal(t, target{}, got)
	})

	t.Run("flag on binds the block", func(t *testing.T) {
		var got target
		res := bindForm(url.Values{"on": {"on"}, "inner_age": {"junk"}}, &got)

		assert.False(t, res.Valid)
		assert.Equal(t, "must be a whole number", res.Error("inner_age"))
	})
}

type mockNotifier struct {
	got notify.WaiverPayload
	id  string
	err error
}

func (m *mockNotifier) SendWaiver(ctx context.Context, p notify.WaiverPayload) (string, error) {
	m.got = p
	return m.id, m.err
}

func TestSendWaiverNotification(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		body     string
		sendErr  error
		wantCode int
		wantBody string
	}{
		{name: "preflight", method: http.MethodOptions, wantCode: http.StatusOK},
		{name: "wrong method", method: http.MethodGet, wantCode: http.StatusMethodNotAllowed},
		{name: "bad json", method: http.MethodPost, body: "{", wantCode: http.StatusInternalServerError, wantBody: `"success":false`},
		{name: "missing waiver", method: http.MethodPost, body: `{}`, wantCode: http.StatusInternalServerError, wantBody: "waiverData is required"},
		{name: "send fails", method: http.MethodPost, body: `{"waiverData":{"fullName":"Ann Rider"}}`, sendErr: errors.New("provider down"), wantCode: http.StatusInternalServerError, wantBody: "provider down"},
		{name: "sent", method: http.MethodPost, body: `{"waiverData":{"fullName":"Ann Rider"}}`, wantCode: http.StatusOK, wantBody: `"messageId":"msg-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &mockNotifier{id: "msg-1", err: tt.sendErr}
			h := NewFunctionHandler(n, logger.Nop())

			rr := httptest.NewRecorder()
			h.sendWaiverNotification(rr, httptest.NewRequest(tt.method, "/functions/v1/send-waiver-notification", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Apikey")
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSendWaiverNotification_PassesPayload(t *testing.T) {
	n := &mockNotifier{id: "msg-1"}
	h := NewFunctionHandler(n, logger.Nop())

	body := `{"waiverData":{"fullName":"Ann Rider","email":"ann@example.com"}}`
	rr := httptest.NewRecorder()
	h.sendWaiverNotification(rr, httptest.NewRequest(http.MethodPost, "/functions/v1/send-waiver-notification", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ann Rider", n.got.FullName)
	assert.Equal(t, "ann@example.com", n.got.Email)
}

// mockSubmitter records the last submitted form.
type mockSubmitter struct {
	contact service.ContactForm
	waiver  service.WaiverForm
	calls   int
	res     service.Result
	err     error
}

func (m *mockSubmitter) SubmitContact(ctx context.Context, f service.ContactForm) (service.Result, error) {
	m.calls++
	m.contact = f
	return m.res, m.err
}

func (m *mockSubmitter) SubmitVideo(ctx context.Context, f service.VideoForm) (service.Result, error) {
	m.calls++
	return m.res, m.err
}

func (m *mockSubmitter) SubmitWaiver(ctx context.Context, f service.WaiverForm) (service.Result, error) {
	m.calls++
	m.waiver = f
	return m.res, m.err
}

func formsTestView(t *testing.T) *view.View {
	t.Helper()
	page := `{{template "base" .}}{{define "content"}}{{with .Error}}banner: {{.}}{{end}} name={{.Form.Name}} {{.Errors.Error "email"}}{{end}}`
	v, err := view.New(fstest.MapFS{
		"templates/layouts/base.html":  {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
		"templates/pages/contact.html": {Data: []byte(page)},
		"templates/pages/waiver.html":  {Data: []byte(`{{template "base" .}}{{define "content"}}{{with .Error}}banner: {{.}}{{end}} age={{.Errors.Error "age"}}{{end}}`)},
	})
	require.NoError(t, err)
	return v
}

func TestSubmitContact(t *testing.T) {
	form := url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "subject": {"Hi"}, "message": {"Hello"}}

	t.Run("success redirects with a flash", func(t *testing.T) {
		sub := &mockSubmitter{res: service.OK()}
		sm := newMockSession()
		h := NewPublicHandler(nil, sub, formsTestView(t), sm, logger.Nop())

		rr := httptest.NewRecorder()
		appErr := h.submitContact(rr, postForm("/contact", form))

		require.Nil(t, appErr)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/contact", rr.Header().Get("Location"))
		assert.Equal(t, "Ann", sub.contact.Name)
		assert.Contains(t, sm.GetString(context.Background(), session.KeyFlash), "Thank you")
	})

	t.Run("invalid input re-renders with values", func(t *testing.T) {
		res := service.OK()
		res.Add("email", "Enter a valid email address")
		sub := &mockSubmitter{res: res}
		h := NewPublicHandler(nil, sub, formsTestView(t), newMockSession(), logger.Nop())

		rr := httptest.NewRecorder()
		appErr := h.submitContact(rr, postForm("/contact", form))

		require.Nil(t, appErr)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, rr.Body.String(), "name=Ann")
		assert.Contains(t, rr.Body.String(), "Enter a valid email address")
	})

	t.Run("store failure shows a banner", func(t *testing.T) {
		sub := &mockSubmitter{res: service.OK(), err: errors.New("db down")}
		h := NewPublicHandler(nil, sub, formsTestView(t), newMockSession(), logger.Nop())

		rr := httptest.NewRecorder()
		appErr := h.submitContact(rr, postForm("/contact", form))

		require.Nil(t, appErr)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "banner: Your message could not be sent")
		assert.Contains(t, rr.Body.String(), "name=Ann")
	})
}

func TestSubmitWaiver_UnparseableAgeIsNotStored(t *testing.T) {
	sub := &mockSubmitter{res: service.OK()}
	h := NewPublicHandler(nil, sub, formsTestView(t), newMockSession(), logger.Nop())

	rr := httptest.NewRecorder()
	appErr := h.submitWaiver(rr, postForm("/waiver", url.Values{"full_name": {"Ann"}, "age": {"old"}}))

	require.Nil(t, appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "must be a whole number")
	assert.Zero(t, sub.calls)
}

func TestSubmitWaiver_PassengerFieldsIgnoredWithoutPassenger(t *testing.T) {
	sub := &mockSubmitter{res: service.OK()}
	h := NewPublicHandler(nil, sub, formsTestView(t), newMockSession(), logger.Nop())

	rr := httptest.NewRecorder()
	appErr := h.submitWaiver(rr, postForm("/waiver", url.Values{
		"full_name":           {"Ann"},
		"passenger_age":       {"junk"},
		"passenger_full_name": {"Leftover"},
	}))

	require.Nil(t, appErr)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 1, sub.calls)
	assert.False(t, sub.waiver.HasPassenger)
	assert.Equal(t, service.PassengerForm{}, sub.waiver.Passenger)
}

func TestSendCSV(t *testing.T) {
	t.Run("writes attachment", func(t *testing.T) {
		rr := httptest.NewRecorder()
		appErr := sendCSV(rr, "registrations", func(w io.Writer) error {
			_, err := io.WriteString(w, "a,b\n")
			return err
		})
		require.Nil(t, appErr)
		assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="registrations-`)
		assert.Equal(t, "a,b\n", rr.Body.String())
	})

	t.Run("query failure is a server error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		appErr := sendCSV(rr, "waivers", func(w io.Writer) error {
			io.WriteString(w, "submitted_at,full_name\n")
			return errors.New("db gone")
		})
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusInternalServerError, appErr.Code)
		assert.Empty(t, rr.Header().Get("Content-Disposition"))
		assert.Zero(t, rr.Body.Len())
	})
}
