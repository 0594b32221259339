package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clubsite/internal/apperr"
	"clubsite/internal/metrics"
	"clubsite/pkg/httpclient"
	"clubsite/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
)

// RESTTransport stores values through a Redis REST endpoint
// (Upstash / Vercel KV): GET {base}/get/{key}, POST {base}/set/{key}.
type RESTTransport struct {
	BaseURL *url.URL
	Token   string
	Client  *retryablehttp.Client
}

// NewRESTTransport builds a transport that makes exactly one attempt per call.
func NewRESTTransport(baseURL, token string) (*RESTTransport, error) {
	if baseURL == "" || token == "" {
		return nil, &apperr.NotConfiguredError{What: "kv rest endpoint"}
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse kv rest url: %w", err)
	}
	return &RESTTransport{BaseURL: u, Token: token, Client: httpclient.SingleAttempt()}, nil
}

func (t *RESTTransport) Name() string { return "rest" }

func (t *RESTTransport) endpoint(op, key string) string {
	return t.BaseURL.String() + "/" + op + "/" + url.PathEscape(key)
}

func (t *RESTTransport) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reqBody interface{}
	if body != nil {
		reqBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build kv request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.Client.Do(req)
}

func (t *RESTTransport) Get(ctx context.Context, key string) ReadOutcome {
	if key == "" {
		return Failure(0, "", apperr.Invalid("key", "must not be empty"))
	}
	start := time.Now()
	defer func() { metrics.StoreDuration.WithLabelValues("get").Observe(time.Since(start).Seconds()) }()

	resp, err := t.do(ctx, http.MethodGet, t.endpoint("get", key), nil)
	if err != nil {
		return Failure(0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure(resp.StatusCode, "", fmt.Errorf("read kv response: %w", err))
	}
	logger.Sugar.Debugf("kv rest GET %s returned status %d", key, resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return Absent()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Failure(resp.StatusCode, string(body), nil)
	}
	return normalizeResult(resp.StatusCode, body)
}

// normalizeResult accepts both {"result": ...} envelopes and flattened bodies.
func normalizeResult(status int, body []byte) ReadOutcome {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return Absent()
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		// Not an object: the body itself is the stored value.
		return Found(string(trimmed))
	}
	if msg, ok := envelope["error"]; ok {
		return Failure(status, string(msg), nil)
	}
	result, ok := envelope["result"]
	if !ok {
		return Found(string(trimmed))
	}
	result = bytes.TrimSpace(result)
	if len(result) == 0 || string(result) == "null" {
		return Absent()
	}
	var s string
	if err := json.Unmarshal(result, &s); err == nil {
		return Found(s)
	}
	return Found(string(result))
}

func (t *RESTTransport) Set(ctx context.Context, key, raw string) error {
	if key == "" {
		return apperr.Invalid("key", "must not be empty")
	}
	start := time.Now()
	defer func() { metrics.StoreDuration.WithLabelValues("set").Observe(time.Since(start).Seconds()) }()

	resp, err := t.do(ctx, http.MethodPost, t.endpoint("set", key), []byte(raw))
	if err != nil {
		return &apperr.TransportError{Op: "set", Key: key, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	logger.Sugar.Debugf("kv rest SET %s returned status %d", key, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperr.TransportError{Op: "set", Key: key, Status: resp.StatusCode, Body: string(body)}
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return &apperr.TransportError{Op: "set", Key: key, Status: resp.StatusCode, Body: envelope.Error,
			Err: errors.New(envelope.Error)}
	}
	return nil
}
