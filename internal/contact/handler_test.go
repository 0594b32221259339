package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"clubsite/internal/contact/model"
	"clubsite/internal/contact/service"
	sitemodel "clubsite/internal/site/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailer struct{ sent int }

func (s *stubMailer) Send(context.Context, model.Notification) error { s.sent++; return nil }
func (s *stubMailer) Check(context.Context) error                    { return nil }
func (s *stubMailer) Name() string                                   { return "stub" }

type stubConfig struct{}

func (stubConfig) EmailConfig(context.Context) sitemodel.EmailConfig {
	return sitemodel.EmailConfig{InquiryEmail: "sec@example.org", SubjectPrefix: "[Club]"}
}
func (stubConfig) HasEmailConfig(context.Context) bool { return true }

const validBody = `{"name":"Jo","email":"jo@example.org","subject":"Hi","message":"Hello"}`

func post(h http.HandlerFunc, body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestSubmitHandler(t *testing.T) {
	m := &stubMailer{}
	h := NewContactHandler(service.NewContactService(m, stubConfig{}, "noreply@example.org"), 0)

	rec := post(h.Submit, validBody, "10.0.0.1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"`+service.SubmittedMessage+`"}`, rec.Body.String())
	assert.Equal(t, 1, m.sent)

	rec = post(h.Submit, `{"name":"Jo"}`, "10.0.0.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation_error"`)

	rec = post(h.Submit, `{`, "10.0.0.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, m.sent)
}

func TestSubmitHandlerWithoutMailer(t *testing.T) {
	h := NewContactHandler(service.NewContactService(nil, stubConfig{}, ""), 0)
	rec := post(h.Submit, validBody, "10.0.0.1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_configured"`)
}

func TestSubmitHandlerRateLimit(t *testing.T) {
	m := &stubMailer{}
	h := NewContactHandler(service.NewContactService(m, stubConfig{}, ""), 2)

	assert.Equal(t, http.StatusOK, post(h.Submit, validBody, "10.0.0.2").Code)
	assert.Equal(t, http.StatusOK, post(h.Submit, validBody, "10.0.0.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(h.Submit, validBody, "10.0.0.2").Code)
	assert.Equal(t, http.StatusOK, post(h.Submit, validBody, "10.0.0.3").Code)
	assert.Equal(t, 3, m.sent)
}

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newIPLimiter(1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	now = now.Add(time.Minute)
	assert.True(t, l.Allow("a"))
}

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req, proxies))

	// Only a trusted proxy may forward an address.
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.0.2.1", clientIP(req, proxies))
	assert.Equal(t, "192.0.2.1", clientIP(req, nil))

	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "203.0.113.9", clientIP(req, proxies))

	// Spoofed entries to the left of the real client are ignored.
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.9, 10.0.0.2")
	assert.Equal(t, "203.0.113.9", clientIP(req, proxies))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", clientIP(req, proxies))
}

func TestSubmitHandlerRateLimitIgnoresForwardedHeader(t *testing.T) {
	m := &stubMailer{}
	h := NewContactHandler(service.NewContactService(m, stubConfig{}, ""), 1)

	for i, fwd := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validBody))
		req.RemoteAddr = "192.0.2.50:5555"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.Submit(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code, fwd)
		}
	}
	assert.Equal(t, 1, m.sent)
}

func TestMethodsAndTestEmail(t *testing.T) {
	h := NewContactHandler(service.NewContactService(&stubMailer{}, stubConfig{}, ""), 0)

	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	h.TestEmail(rec, httptest.NewRequest(http.MethodGet, "/test-email", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mailer":"stub"`)
	assert.Contains(t, rec.Body.String(), `"mailerStatus":"ok"`)
}
