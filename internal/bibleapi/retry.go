package bibleapi

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// RetryConfig tunes the retry loop for upstream requests.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter randomizes delays ("full jitter") to avoid thundering herds.
	Jitter bool
}

// DefaultRetryConfig matches the upstream client defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      true,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c == (RetryConfig{}) {
		return d
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	return c
}

// backoffDelay computes the delay before the given 1-based attempt's retry.
func (c RetryConfig) backoffDelay(attempt int) time.Duration {
	exponent := attempt - 1
	if exponent < 0 {
		exponent = 0
	}
	delay := c.BaseDelay
	for i := 0; i < exponent; i++ {
		delay *= 2
		if delay >= c.MaxDelay {
			delay = c.MaxDelay
			break
		}
	}
	if !c.Jitter {
		return delay
	}
	return time.Duration(rand.Int64N(int64(delay) + 1))
}

// isRetryableStatus reports whether an HTTP status is worth retrying.
func isRetryableStatus(status int) bool {
	return status == 408 || status == 429 || (status >= 500 && status <= 599)
}

// parseRetryAfter converts a Retry-After header (seconds form) to a
// duration, clamped so one response cannot stall a caller forever.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds * float64(time.Second))
	if d > time.Minute {
		d = time.Minute
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
