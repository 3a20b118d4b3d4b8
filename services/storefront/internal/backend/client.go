// Package backend talks to the remote commerce backend that owns carts,
// inventory and orders.
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
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

const (
	serviceName = "backend"
	tracerName  = "github.com/nongtiensonpro/yellowcat/services/storefront/internal/backend"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// UpdateCartItemRequest is the body of PUT /api/cart-items/update.
type UpdateCartItemRequest struct {
	KeycloakID string `json:"keycloakId"`
	VariantID  int64  `json:"variantId"`
	CartItemID *int64 `json:"cartItemId"`
	Quantity   int    `json:"quantity"`
}

// AddCartItemRequest is the body of POST /api/cart-items/add.
type AddCartItemRequest struct {
	KeycloakID string `json:"keycloakId"`
	VariantID  int64  `json:"variantId"`
	Quantity   int    `json:"quantity"`
}

// ConfirmProduct is one line of a cart confirmation.
type ConfirmProduct struct {
	VariantID int64 `json:"variantId"`
	Quantity  int   `json:"quantity"`
}

// ConfirmCartRequest is the body of POST /api/cart/confirm.
type ConfirmCartRequest struct {
	KeycloakID        string           `json:"keycloakId"`
	AllowWaitingOrder bool             `json:"allowWaitingOrder"`
	Products          []ConfirmProduct `json:"products"`
}

// Client is the storefront's view of the commerce backend.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{http: doer, baseURL: baseURL, logger: logger}
}

// FetchCart returns the server-persisted cart of an account. A response whose
// items field is missing, null or not an array reads as an empty, non-nil cart.
func (c *Client) FetchCart(ctx context.Context, keycloakID string) (items []domain.CartLineItem, err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.FetchCart", attribute.String("keycloak_id", keycloakID))
	defer func() { end(err) }()

	var body struct {
		Items json.RawMessage `json:"items"`
	}
	path := "/api/cart?keycloakId=" + url.QueryEscape(keycloakID)
	if err = c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}

	if len(body.Items) == 0 || json.Unmarshal(body.Items, &items) != nil || items == nil {
		c.logger.WarnContext(ctx, "backend cart response has no item array, treating as empty",
			slog.String("keycloak_id", keycloakID),
		)
		return []domain.CartLineItem{}, nil
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

// UpdateQuantity sets the quantity of a persisted cart line.
func (c *Client) UpdateQuantity(ctx context.Context, req UpdateCartItemRequest) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.UpdateQuantity",
		attribute.Int64("variant_id", req.VariantID),
		attribute.Int("quantity", req.Quantity),
	)
	defer func() { end(err) }()

	return c.do(ctx, http.MethodPut, "/api/cart-items/update", req, nil)
}

// RemoveItem deletes a persisted cart line.
func (c *Client) RemoveItem(ctx context.Context, cartItemID int64) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.RemoveItem", attribute.Int64("cart_item_id", cartItemID))
	defer func() { end(err) }()

	return c.do(ctx, http.MethodDelete, "/api/cart-items/remove/"+strconv.FormatInt(cartItemID, 10), nil, nil)
}

// AddItem adds a variant to an account cart.
func (c *Client) AddItem(ctx context.Context, req AddCartItemRequest) (err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.AddItem",
		attribute.Int64("variant_id", req.VariantID),
		attribute.Int("quantity", req.Quantity),
	)
	defer func() { end(err) }()

	return c.do(ctx, http.MethodPost, "/api/cart-items/add", req, nil)
}

// ConfirmCart asks the backend to turn the cart into an order.
func (c *Client) ConfirmCart(ctx context.Context, req ConfirmCartRequest) (result *domain.ConfirmResult, err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.ConfirmCart", attribute.Int("products", len(req.Products)))
	defer func() { end(err) }()

	result = &domain.ConfirmResult{}
	if err = c.do(ctx, http.MethodPost, "/api/cart/confirm", req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchOrder loads a placed order by its code.
func (c *Client) FetchOrder(ctx context.Context, orderCode string) (order *domain.Order, err error) {
	ctx, end := tracing.Start(ctx, tracerName, "backend.FetchOrder", attribute.String("order_code", orderCode))
	defer func() { end(err) }()

	order = &domain.Order{}
	if err = c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderCode), nil, order); err != nil {
		return nil, err
	}
	if order.OrderCode == "" {
		order.OrderCode = orderCode
	}
	return order, nil
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

// do sends a JSON request and decodes a JSON answer into out when out is
// non-nil. Failures come back as AppErrors.
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
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
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
