// Package transport provides the rate-limited HTTP client shared by the
// Airtable and GitHub adapters. It retries 429/5xx responses with exponential
// backoff, honors server-requested waits and fails fast on other 4xx statuses.
package transport

import (
	"context"
	stderrors "errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/errors"
	"github.com/agentstation/reposcout/pkg/logging"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 4096

// Client performs HTTP requests with retry and rate-limit handling.
type Client struct {
	http   *http.Client
	policy RetryPolicy
	sleep  Sleeper
	now    func() time.Time
	rand   func() float64
	logger *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p.normalized()
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithClock replaces the time source used to interpret reset headers.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRand replaces the jitter source.
func WithRand(rnd func() float64) Option {
	return func(c *Client) {
		c.rand = rnd
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: constants.DefaultHTTPTimeout},
		policy: DefaultRetryPolicy(),
		sleep:  SleepContext,
		now:    time.Now,
		rand:   rand.Float64,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the retry policy in use.
func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// CloseIdleConnections closes idle keep-alive connections of the underlying client.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// Do sends the request, retrying transient failures. On success the caller
// owns the response body. Errors are *errors.TransientError once the attempt
// budget is spent, *errors.FatalError for non-retryable statuses or an
// invalid credential, or the context error when ctx is done.
func (c *Client) Do(ctx context.Context, r *Request) (*http.Response, error) {
	if r.Auth == nil {
		return nil, errors.NewFatalError(r.operation(), 0, "no credential configured", errors.ErrAPIKeyRequired)
	}
	if err := r.Auth.Validate(); err != nil {
		return nil, err
	}

	body, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	logger := c.logger.With().Str("operation", r.operation()).Logger()
	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 1; ; attempt++ {
		req, err := r.build(ctx, body)
		if err != nil {
			return nil, err
		}

		wait := c.policy.Backoff(attempt, c.rand)
		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr, lastStatus = err, 0
		} else {
			switch classify(resp) {
			case classSuccess:
				return resp, nil
			case classFatal:
				msg := readErrorBody(resp)
				return nil, errors.NewFatalError(r.operation(), resp.StatusCode, msg, &errors.APIError{
					Service:    r.Service,
					StatusCode: resp.StatusCode,
					Message:    msg,
					Endpoint:   r.URL,
				})
			case classTransient:
				msg := readErrorBody(resp)
				lastStatus = resp.StatusCode
				lastErr = &errors.APIError{
					Service:    r.Service,
					StatusCode: resp.StatusCode,
					Message:    msg,
					Endpoint:   r.URL,
				}
				if requested, ok := serverWait(resp, c.now()); ok && c.policy.HonorRetryAfter {
					if c.policy.MaxWait > 0 && requested > c.policy.MaxWait {
						logger.Warn().
							Int("status", lastStatus).
							Dur("requested_wait", requested).
							Msg("Server requested wait exceeds limit, giving up")
						return nil, errors.NewTransientError(r.operation(), lastStatus, attempt, lastErr)
					}
					if requested > wait {
						wait = requested
					}
				}
			}
		}

		if attempt >= c.policy.MaxAttempts {
			return nil, errors.NewTransientError(r.operation(), lastStatus, attempt, lastErr)
		}

		logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", c.policy.MaxAttempts).
			Int("status", lastStatus).
			Dur("wait", wait).
			Msg("Transient failure, backing off")

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// readErrorBody drains and closes an error response, returning a short message.
func readErrorBody(resp *http.Response) string {
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil && !stderrors.Is(err, io.EOF) {
		return http.StatusText(resp.StatusCode)
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return http.StatusText(resp.StatusCode)
	}
	return msg
}
