// Package backend is the admin console's client for the commerce backend's
// reference-data and promotion collections.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/pkg/httpclient"
	"github.com/nongtiensonpro/yellowcat/pkg/tracing"
)

const (
	serviceName = "backend"
	tracerName  = "github.com/nongtiensonpro/yellowcat/services/admin/internal/backend"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Page is the backend's paged list envelope.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	// Number is zero-based.
	Number int `json:"number"`
	Size   int `json:"size"`
}

// ListQuery selects one page of a collection.
type ListQuery struct {
	// Page is zero-based.
	Page        int
	Size        int
	SearchParam string
	Search      string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.SearchParam != "" && q.Search != "" {
		v.Set(q.SearchParam, q.Search)
	}
	return v
}

// Client performs JSON CRUD calls against backend collections.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{http: doer, baseURL: baseURL, logger: logger}
}

// List fetches one page of the collection at basePath into out, which should
// be a *Page[T].
func (c *Client) List(ctx context.Context, basePath string, q ListQuery, out any) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.List",
		attribute.String("path", basePath),
		attribute.Int("page", q.Page),
	)
	defer func() { end(err) }()

	return c.do(ctx, http.MethodGet, basePath+"?"+q.values().Encode(), nil, out)
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, basePath string, id int64, out any) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.Get",
		attribute.String("path", basePath),
		attribute.Int64("id", id),
	)
	defer func() { end(err) }()

	return c.do(ctx, http.MethodGet, itemPath(basePath, id), nil, out)
}

// Create posts a new record and decodes the stored version into out.
func (c *Client) Create(ctx context.Context, basePath string, in, out any) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.Create", attribute.String("path", basePath))
	defer func() { end(err) }()

	return c.do(ctx, http.MethodPost, basePath, in, out)
}

// Update replaces a record and decodes the stored version into out.
func (c *Client) Update(ctx context.Context, basePath string, id int64, in, out any) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.Update",
		attribute.String("path", basePath),
		attribute.Int64("id", id),
	)
	defer func() { end(err) }()

	return c.do(ctx, http.MethodPut, itemPath(basePath, id), in, out)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, basePath string, id int64) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.Delete",
		attribute.String("path", basePath),
		attribute.Int64("id", id),
	)
	defer func() { end(err) }()

	return c.do(ctx, http.MethodDelete, itemPath(basePath, id), nil, nil)
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var serverErr *httpclient.ServerError
		if errors.As(err, &serverErr) {
			return nil
		}
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func itemPath(basePath string, id int64) string {
	return basePath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.transportError(ctx, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.BadGateway(fmt.Sprintf("%s: decode %s %s response: %v", serviceName, method, path, err))
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, method, path string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var serverErr *httpclient.ServerError
	var netErr net.Error
	switch {
	case errors.Is(err, httpclient.ErrCircuitOpen):
		c.logger.WarnContext(ctx, "backend circuit open", slog.String("method", method), slog.String("path", path))
		return apperrors.ServiceUnavailable("backend temporarily unavailable", err)
	case errors.As(err, &serverErr):
		if serverErr.Status == http.StatusServiceUnavailable {
			return apperrors.ServiceUnavailable("backend temporarily unavailable", err)
		}
		return apperrors.BadGateway(fmt.Sprintf("%s server error (%d) on %s %s", serviceName, serverErr.Status, method, path))
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return apperrors.ServiceUnavailable("backend unreachable", err)
	default:
		return apperrors.ServiceUnavailable("backend request failed", err)
	}
}
