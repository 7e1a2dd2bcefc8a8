package delivery

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultRetryWait  = 2 // in retryUnit
	maxRetryWait      = 60
)

// retryUnit scales advertised retry-after values.
var retryUnit = time.Second

var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

// isRateLimited reports whether err is a Telegram flood-control response.
func isRateLimited(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429")
}

// parseRetryAfter extracts the retry duration in seconds from an error string.
func parseRetryAfter(errorString string) (int, bool) {
	m := retryAfterRe.FindStringSubmatch(errorString)
	if m == nil {
		return 0, false
	}
	retryAfter, err := strconv.Atoi(m[1])
	if err != nil || retryAfter <= 0 {
		return 0, false
	}
	return retryAfter, true
}

// withRetry runs send and retries it while Telegram answers with 429.
// Any other error is returned immediately.
func withRetry[T any](ctx context.Context, logPrefix string, maxRetries int, send func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := send()
		if err == nil {
			if attempt > 0 {
				log.Printf("%s Successfully sent after %d attempt(s)", logPrefix, attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !isRateLimited(err) {
			return zero, err
		}

		wait := defaultRetryWait
		if retryAfter, ok := parseRetryAfter(err.Error()); ok {
			wait = min(retryAfter, maxRetryWait)
			log.Printf("%s Rate limit hit (attempt %d/%d), waiting %d seconds", logPrefix, attempt+1, maxRetries, wait)
		} else {
			log.Printf("%s Rate limit hit (attempt %d/%d), couldn't parse retry time, waiting %d seconds. Error: %v", logPrefix, attempt+1, maxRetries, wait, err)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during rate limit wait (attempt %d/%d): %w", attempt+1, maxRetries, ctx.Err())
		case <-time.After(time.Duration(wait) * retryUnit):
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}
