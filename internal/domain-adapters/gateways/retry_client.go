package gateways

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/interfaces"
)

const (
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
)

// NewRetryingHTTPClient returns an http.Client that retries transient failures
// (network errors, 429 and 5xx) up to retries times with exponential backoff.
// The final response is returned unchanged so callers see the real status.
// A zero timeout means entities.DefaultFeedTimeout.
func NewRetryingHTTPClient(retries int, timeout time.Duration, logger interfaces.Logger) *http.Client {
	return newRetryableClient(retries, timeout, logger).StandardClient()
}

func newRetryableClient(retries int, timeout time.Duration, logger interfaces.Logger) *retryablehttp.Client {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if timeout <= 0 {
		timeout = entities.DefaultFeedTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = initialBackoff
	rc.RetryWaitMax = maxBackoff
	rc.HTTPClient.Timeout = timeout
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("retrying request",
				interfaces.F("url", req.URL.String()),
				interfaces.F("attempt", attempt),
				interfaces.F("max_retries", retries),
			)
		}
	}

	return rc
}
