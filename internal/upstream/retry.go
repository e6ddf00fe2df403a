package upstream

import (
	"context"
	"errors"
	"time"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring"
)

// WithRetry runs attempt up to 1+retryTimes times, retrying only on
// upstream 429. Any other failure, and anything after the first client
// byte has been written, must be surfaced by the caller as-is.
func WithRetry(ctx context.Context, retryTimes int, attempt func() error) error {
	if retryTimes < 0 {
		retryTimes = 0
	}
	var lastErr error
	for i := 0; i <= retryTimes; i++ {
		if i > 0 {
			monitoring.UpstreamRetriesTotal.WithLabelValues("retry").Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * constants.RetryBackoffStep):
			}
		}
		lastErr = attempt()
		if lastErr == nil {
			if i > 0 {
				monitoring.UpstreamRetriesTotal.WithLabelValues("recovered").Inc()
			}
			return nil
		}
		var upErr *Error
		if !errors.As(lastErr, &upErr) || !upErr.RateLimited() {
			return lastErr
		}
	}
	monitoring.UpstreamRetriesTotal.WithLabelValues("exhausted").Inc()
	return lastErr
}
