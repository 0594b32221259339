// Package httpclient builds the outbound HTTP clients used for the key-value
// store and the email provider.
package httpclient

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// SingleAttempt returns a retryablehttp client that never retries and hands
// non-2xx responses back to the caller untouched. No client timeout is set;
// the request context bounds each call.
func SingleAttempt() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient = cleanhttp.DefaultPooledClient()
	c.RetryMax = 0
	c.CheckRetry = func(context.Context, *http.Response, error) (bool, error) { return false, nil }
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = nil
	return c
}
