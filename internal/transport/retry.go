package transport

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/agentstation/reposcout/pkg/constants"
)

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay between consecutive attempts.
	Multiplier float64
	// Jitter adds up to this fraction of the delay on top of it.
	Jitter float64
	// HonorRetryAfter waits at least as long as Retry-After / X-RateLimit-Reset ask.
	HonorRetryAfter bool
	// MaxWait bounds a single server-requested wait. Longer requests give up
	// immediately instead of blocking the run. Zero means no bound.
	MaxWait time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     constants.MaxRetries,
		BaseDelay:       constants.RetryBackoff,
		MaxDelay:        constants.MaxRetryBackoff,
		Multiplier:      constants.RetryMultiplier,
		Jitter:          constants.RetryJitter,
		HonorRetryAfter: true,
		MaxWait:         15 * time.Minute,
	}
}

// normalized fills zero values with defaults.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay {
		p.BaseDelay = p.MaxDelay
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based).
// rnd returns a value in [0,1) and is only used when Jitter > 0.
func (p RetryPolicy) Backoff(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 && rnd != nil {
		d += d * p.Jitter * rnd()
	}
	return time.Duration(d)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// serverWait extracts the wait a response asks for, if any.
// Retry-After (delta seconds or HTTP date) takes precedence over
// X-RateLimit-Reset (unix seconds, GitHub style).
func serverWait(resp *http.Response, now time.Time) (time.Duration, bool) {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			if secs < 0 {
				secs = 0
			}
			return time.Duration(secs) * time.Second, true
		}
		if at, err := http.ParseTime(v); err == nil {
			return nonNegative(at.Sub(now)), true
		}
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
			if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
				return nonNegative(time.Unix(reset, 0).Sub(now)) + constants.RateLimitResetBuffer, true
			}
		}
	}
	return 0, false
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// statusClass classifies a response status for retry purposes.
type statusClass int

const (
	classSuccess statusClass = iota
	classTransient
	classFatal
)

// classify maps a response to a retry decision. A 403 counts as a rate limit
// only when the server says so through its rate limit headers.
func classify(resp *http.Response) statusClass {
	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return classSuccess
	case code == http.StatusTooManyRequests, code >= 500:
		return classTransient
	case code == http.StatusForbidden && isRateLimitForbidden(resp):
		return classTransient
	default:
		return classFatal
	}
}

func isRateLimitForbidden(resp *http.Response) bool {
	return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
}
