package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
)

// Config tunes the pooled transport and the retry loop. MaxRetries counts
// attempts after the first one.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// backoff is the wait before retry n (n >= 1): RetryWaitMin doubled per
// retry, capped at RetryWaitMax, then jittered.
func (c Config) backoff(n int) time.Duration {
	wait := c.RetryWaitMin << (n - 1)
	if wait <= 0 || (c.RetryWaitMax > 0 && wait > c.RetryWaitMax) {
		wait = c.RetryWaitMax
	}
	return addJitter(wait)
}

// Client is an http.Client that retries transport failures and 5xx replies.
type Client struct {
	httpClient *http.Client
	config     Config
}

func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
				MaxConnsPerHost:       cfg.MaxConnsPerHost,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		},
		config: cfg,
	}
}

// IdempotencyKeyHeader marks a non-idempotent request as safe to resend.
const IdempotencyKeyHeader = "Idempotency-Key"

// Do sends req bound to ctx, forwarding the correlation id and trace context.
// Only idempotent methods, or requests carrying an Idempotency-Key, are
// retried; a POST that failed may still have been applied. A request body is
// resent only when req.GetBody can rewind it. The last 5xx reply is returned
// as-is once retries run out.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	propagate(ctx, req)

	retries := c.config.MaxRetries
	if !replayable(req) {
		retries = 0
	}
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.config.backoff(attempt)); err != nil {
				return nil, err
			}
			if err := rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.httpClient.Do(req)
		last := attempt >= retries
		switch {
		case err != nil:
			if last || !isRetryableError(err) {
				return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
			}
		case retryableStatus(resp.StatusCode) && !last:
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		default:
			return resp, nil
		}
	}
}

func replayable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return req.Header.Get(IdempotencyKeyHeader) != ""
}

func retryableStatus(code int) bool {
	return code >= 500 && code != http.StatusNotImplemented
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func rewind(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return errors.New("retry: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

// addJitter spreads d by up to 25% either way.
func addJitter(d time.Duration) time.Duration {
	spread := int64(d) / 2
	if spread <= 0 {
		return max(d, 0)
	}
	return time.Duration(int64(d) - spread/2 + rand.Int64N(spread+1))
}

func propagate(ctx context.Context, req *http.Request) {
	if id := logger.CorrelationIDFromContext(ctx); id != "" && req.Header.Get("X-Correlation-ID") == "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// isRetryableError accepts network failures that were not caused by the
// caller giving up.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
