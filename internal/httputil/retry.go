// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the tool and API clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay is the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// DefaultMaxRetries bounds retry loops when callers pass 0.
const DefaultMaxRetries = 5

// Backoff returns the delay before retry number attempt (0-based). The
// delay starts at RetryBaseDelay and doubles each attempt.
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
}

// Sleep waits for the backoff delay of the given attempt, or returns early
// with ctx.Err() if the context is cancelled.
func Sleep(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(Backoff(attempt)):
		return nil
	}
}

// retryable reports whether a response status warrants a blind retry.
// Only idempotent GET requests go through this path, so retrying rate
// limits and server errors is safe.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request and retries retryable statuses
// (429 and 5xx) with exponential backoff, capped at maxRetries attempts
// (DefaultMaxRetries when 0). On each retry the response body is drained
// and closed before sleeping. After exhausting retries the last response
// is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if attempt >= maxRetries-1 {
				return nil, err
			}
			if serr := Sleep(ctx, attempt); serr != nil {
				return nil, serr
			}
			continue
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries-1 {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := Sleep(ctx, attempt); err != nil {
			return nil, err
		}
	}
}
