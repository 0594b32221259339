package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"clubsite/internal/apperr"
	"clubsite/internal/contact/model"
	"clubsite/pkg/httpclient"
	"clubsite/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
)

const DefaultResendURL = "https://api.resend.com"

// ResendMailer posts to the Resend email API.
type ResendMailer struct {
	BaseURL string
	APIKey  string
	Client  *retryablehttp.Client
}

func NewResendMailer(apiKey string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, &apperr.NotConfiguredError{What: "email service"}
	}
	return &ResendMailer{BaseURL: DefaultResendURL, APIKey: apiKey, Client: httpclient.SingleAttempt()}, nil
}

func (m *ResendMailer) Name() string { return "resend" }

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (m *ResendMailer) request(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, strings.TrimRight(m.BaseURL, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return m.Client.Do(req)
}

func (m *ResendMailer) Send(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(resendEmail{
		From:    n.From,
		To:      []string{n.To},
		ReplyTo: n.ReplyTo,
		Subject: n.Subject,
		HTML:    n.HTML,
		Text:    n.Text,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	resp, err := m.request(ctx, http.MethodPost, "/emails", payload)
	if err != nil {
		return &apperr.DeliveryError{Kind: apperr.DeliveryService, Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		var sent struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &sent)
		logger.Sugar.Infof("Email sent successfully, id=%s", sent.ID)
		return nil
	}
	return classify(resp.StatusCode, body)
}

// classify maps a Resend error response onto a delivery kind.
func classify(status int, body []byte) *apperr.DeliveryError {
	var re resendError
	_ = json.Unmarshal(body, &re)
	msg := strings.ToLower(re.Message)

	kind := apperr.DeliveryService
	switch status {
	case http.StatusUnauthorized:
		kind = apperr.DeliveryCredentialInvalid
	case http.StatusForbidden:
		if re.Name == "invalid_api_key" || re.Name == "restricted_api_key" {
			kind = apperr.DeliveryCredentialInvalid
		} else {
			kind = apperr.DeliverySenderUnverified
		}
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		kind = apperr.DeliveryMalformedAddress
		if strings.Contains(msg, "domain") && strings.Contains(msg, "verif") {
			kind = apperr.DeliverySenderUnverified
		}
	}
	return &apperr.DeliveryError{Kind: kind, Status: status, Body: string(body)}
}

// Check lists domains, which requires a valid key.
func (m *ResendMailer) Check(ctx context.Context) error {
	resp, err := m.request(ctx, http.MethodGet, "/domains", nil)
	if err != nil {
		return &apperr.DeliveryError{Kind: apperr.DeliveryService, Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	return classify(resp.StatusCode, body)
}
