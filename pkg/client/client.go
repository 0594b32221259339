// Package client talks to the club site API and, in development mode, keeps
// a local cache that stands in for the server when it cannot be reached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clubsite/internal/site/model"
	"clubsite/pkg/logger"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

type Mode int

const (
	// Production never lets the local cache stand in for a failed write.
	Production Mode = iota
	Development
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "production", "prod":
		return Production, nil
	case "development", "dev", "":
		return Development, nil
	}
	return Production, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string {
	if m == Development {
		return "development"
	}
	return "production"
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	Token   string
	Mode    Mode
	Cache   Cache
	HTTP    *retryablehttp.Client
}

type Option func(*Client)

func WithToken(token string) Option { return func(c *Client) { c.Token = token } }

func WithCache(cache Cache) Option { return func(c *Client) { c.Cache = cache } }

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option { return func(c *Client) { c.HTTP.RetryMax = n } }

type singleAttemptKey struct{}

// singleAttempt marks a request that must not be resent: the server may have
// applied it even though the answer never arrived.
func singleAttempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if once, _ := ctx.Value(singleAttemptKey{}).(bool); once {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func New(baseURL string, mode Mode, opts ...Option) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient = cleanhttp.DefaultPooledClient()
	httpClient.HTTPClient.Timeout = 30 * time.Second
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.CheckRetry = checkRetry
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = nil

	c := &Client{BaseURL: strings.TrimRight(baseURL, "/"), Mode: mode, HTTP: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends body (if any) as JSON and decodes a 2xx answer into out.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.send(ctx, method, path, body, out)
	return err
}

// send is Do, also returning the response headers of a 2xx answer.
func (c *Client) send(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var reqBody interface{}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = raw
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	if out == nil {
		return resp.Header, nil
	}
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.Header, nil
}

// Source says where a Read result came from.
type Source string

const (
	FromRemote  Source = "remote"
	FromCache   Source = "cache"
	FromDefault Source = "default"
)

// Read fetches resource. It never fails: when the server cannot be reached
// the cached copy (development only) or def is returned instead.
//
// Only documents the server actually read from its store refresh the cache.
// A server whose store is down still answers 200 with a default, which must
// not replace the last good copy.
func Read[T any](ctx context.Context, c *Client, resource string, def T) (T, Source) {
	var out T
	header, err := c.send(ctx, http.MethodGet, "/"+resource, nil, &out)
	if err == nil {
		if c.Mode == Development && storedUpstream(header) {
			c.store(resource, out)
		}
		return out, FromRemote
	}
	logger.Sugar.Warnf("Client: reading %s failed: %v", resource, err)

	if c.Mode == Development && c.Cache != nil {
		raw, ok, cerr := c.Cache.Get(resource)
		if cerr != nil {
			logger.Sugar.Warnf("Client: cache read for %s failed: %v", resource, cerr)
		}
		if ok {
			var cached T
			if json.Unmarshal(raw, &cached) == nil {
				return cached, FromCache
			}
		}
	}
	return def, FromDefault
}

// storedUpstream reports whether the answer came from the server's store.
// Servers that do not send the header are trusted.
func storedUpstream(h http.Header) bool {
	src := h.Get(model.SourceHeader)
	return src == "" || src == "store"
}

// WriteResult reports a successful write. Degraded means the server was not
// reached and the document only exists in the local cache.
type WriteResult struct {
	Degraded bool   `json:"degraded"`
	Message  string `json:"message,omitempty"`
}

// Write saves doc. In development a failed write lands in the local cache
// and is reported as degraded; in production the failure is returned.
func Write[T any](ctx context.Context, c *Client, resource string, doc T) (WriteResult, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.Do(ctx, http.MethodPost, "/"+resource, doc, &resp)
	if err == nil {
		if c.Mode == Development {
			c.store(resource, doc)
		}
		return WriteResult{Message: resp.Message}, nil
	}
	if c.Mode != Development || c.Cache == nil {
		return WriteResult{}, err
	}
	if apiErr, ok := err.(*APIError); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
		// The server rejected the document itself; caching it would hide that.
		return WriteResult{}, err
	}
	if cerr := c.store(resource, doc); cerr != nil {
		return WriteResult{}, fmt.Errorf("%w (local cache also failed: %v)", err, cerr)
	}
	logger.Sugar.Warnf("Client: %s saved to local cache only: %v", resource, err)
	return WriteResult{Degraded: true, Message: "Saved locally; the server could not be reached"}, nil
}

func (c *Client) store(resource string, v any) error {
	if c.Cache == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.Cache.Set(resource, raw); err != nil {
		logger.Sugar.Warnf("Client: cache write for %s failed: %v", resource, err)
		return err
	}
	return nil
}
