package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"clubsite/internal/apperr"
	"clubsite/internal/contact/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResend(t *testing.T, handler http.HandlerFunc) *ResendMailer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	m, err := NewResendMailer("re_test")
	require.NoError(t, err)
	m.BaseURL = srv.URL
	return m
}

func TestNewResendMailerRequiresKey(t *testing.T) {
	_, err := NewResendMailer("")
	var nc *apperr.NotConfiguredError
	assert.True(t, errors.As(err, &nc))
}

func TestResendSend(t *testing.T) {
	var got resendEmail
	m := newResend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"id":"abc"}`))
	})

	err := m.Send(context.Background(), model.Notification{
		From: "noreply@example.org", To: "sec@example.org", ReplyTo: "jo@example.org",
		Subject: "[Club] Hi", Text: "hello", HTML: "<p>hello</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sec@example.org"}, got.To)
	assert.Equal(t, "jo@example.org", got.ReplyTo)
	assert.Equal(t, "[Club] Hi", got.Subject)
}

func TestResendClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   apperr.DeliveryKind
	}{
		{401, `{"name":"missing_api_key","message":"Missing API key"}`, apperr.DeliveryCredentialInvalid},
		{403, `{"name":"invalid_api_key","message":"API key is invalid"}`, apperr.DeliveryCredentialInvalid},
		{403, `{"name":"validation_error","message":"You can only send testing emails to your own address"}`, apperr.DeliverySenderUnverified},
		{422, `{"name":"validation_error","message":"Invalid 'to' field"}`, apperr.DeliveryMalformedAddress},
		{422, `{"name":"validation_error","message":"The example.org domain is not verified"}`, apperr.DeliverySenderUnverified},
		{500, `oops`, apperr.DeliveryService},
	}
	for _, tc := range cases {
		m := newResend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		})
		err := m.Send(context.Background(), model.Notification{To: "a@example.org"})
		var de *apperr.DeliveryError
		require.True(t, errors.As(err, &de), tc.body)
		assert.Equal(t, tc.want, de.Kind, tc.body)
		assert.Equal(t, tc.status, de.Status)
	}
}

func TestResendCheck(t *testing.T) {
	m := newResend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/domains", r.URL.Path)
		w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, m.Check(context.Background()))

	m = newResend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	var de *apperr.DeliveryError
	require.True(t, errors.As(m.Check(context.Background()), &de))
	assert.Equal(t, apperr.DeliveryCredentialInvalid, de.Kind)
}

func TestClassifySMTP(t *testing.T) {
	assert.Equal(t, apperr.DeliveryCredentialInvalid, classifySMTP(&textproto.Error{Code: 535, Msg: "auth failed"}).Kind)
	assert.Equal(t, apperr.DeliveryMalformedAddress, classifySMTP(&textproto.Error{Code: 501, Msg: "bad address"}).Kind)
	assert.Equal(t, apperr.DeliverySenderUnverified, classifySMTP(&textproto.Error{Code: 553, Msg: "relay denied"}).Kind)
	assert.Equal(t, apperr.DeliveryService, classifySMTP(errors.New("dial tcp: refused")).Kind)
}

func TestNewSMTPMailerRequiresHost(t *testing.T) {
	_, err := NewSMTPMailer("", 587, "u", "p")
	var nc *apperr.NotConfiguredError
	assert.True(t, errors.As(err, &nc))
}
