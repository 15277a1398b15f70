package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffConfig controls the retry behaviour for upstream calls that are
// worth retrying (NWS throttles with 403/429).
type BackoffConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff matches the NWS contract: 3 attempts total, exponential
// delay capped at 5s, last error surfaced after exhaustion.
var DefaultBackoff = BackoffConfig{
	MaxAttempts:     3,
	InitialInterval: 1 * time.Second,
	MaxInterval:     5 * time.Second,
}

var (
	errThrottled  = errors.New("upstream throttled")
	errUnexpected = errors.New("unexpected status code")
)

// doGetWithBackoff issues a GET and retries on transport errors and
// throttling statuses (403/429). Other non-2xx statuses fail immediately.
// After MaxAttempts the last error is returned.
func doGetWithBackoff(ctx context.Context, client *http.Client, cfg BackoffConfig, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultBackoff
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall time

	var resp *http.Response
	op := func() error {
		req, err := buildRequest()
		if err != nil {
			return backoff.Permanent(err)
		}
		req = req.WithContext(ctx)

		r, err := client.Do(req)
		if err != nil {
			return err
		}

		switch {
		case r.StatusCode == http.StatusForbidden || r.StatusCode == http.StatusTooManyRequests:
			r.Body.Close()
			return fmt.Errorf("%w: %d", errThrottled, r.StatusCode)
		case r.StatusCode < 200 || r.StatusCode >= 300:
			r.Body.Close()
			return backoff.Permanent(fmt.Errorf("%w: %d", errUnexpected, r.StatusCode))
		}

		resp = r
		return nil
	}

	retries := uint64(cfg.MaxAttempts - 1)
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}
