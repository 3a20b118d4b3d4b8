package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      1,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    2 * time.Millisecond,
		MaxConnsPerHost: 4,
	})
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
		Name:         "backend-test-" + t.Name(),
		MaxRequests:  1,
		Timeout:      time.Minute,
		FailureRatio: 1,
		MinRequests:  100,
	}, newTestLogger())
	return NewClient(cb, srv.URL, newTestLogger())
}

func TestFetchCart_DecodesItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "kc-42", r.URL.Query().Get("keycloakId"))
		_, _ = io.WriteString(w, `{"items":[
			{"variantId":11,"productId":1,"productName":"Áo","unitPrice":450000,"salePrice":399000,"quantity":2,"stockLevel":5,"cartItemId":900},
			{"variantId":12,"productId":1,"productName":"Áo","unitPrice":450000,"salePrice":500000,"quantity":0,"stockLevel":3,"cartItemId":901}
		]}`)
	})

	items, err := client.FetchCart(context.Background(), "kc-42")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(11), items[0].VariantID)
	require.NotNil(t, items[0].CartItemID)
	assert.Equal(t, int64(900), *items[0].CartItemID)
	require.NotNil(t, items[0].SalePrice)
	// A sale price above list is dropped and quantity floored to 1.
	assert.Nil(t, items[1].SalePrice)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestFetchCart_MalformedShapeIsEmpty(t *testing.T) {
	bodies := []string{`{}`, `{"items":null}`, `{"items":{"a":1}}`, `{"items":"nope"}`}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})

			items, err := client.FetchCart(context.Background(), "kc-1")
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestUpdateQuantity_SendsBody(t *testing.T) {
	cartItemID := int64(77)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/cart-items/update", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "kc-1", got["keycloakId"])
		assert.EqualValues(t, 11, got["variantId"])
		assert.EqualValues(t, 77, got["cartItemId"])
		assert.EqualValues(t, 3, got["quantity"])
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateQuantity(context.Background(), UpdateCartItemRequest{
		KeycloakID: "kc-1", VariantID: 11, CartItemID: &cartItemID, Quantity: 3,
	})
	require.NoError(t, err)
}

func TestRemoveItem_Path(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cart-items/remove/901", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.RemoveItem(context.Background(), 901))
}

func TestAddItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cart-items/add", r.URL.Path)
		var got AddCartItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, AddCartItemRequest{KeycloakID: "kc-1", VariantID: 5, Quantity: 2}, got)
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.AddItem(context.Background(), AddCartItemRequest{KeycloakID: "kc-1", VariantID: 5, Quantity: 2}))
}

func TestConfirmCart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/confirm", r.URL.Path)
		var got ConfirmCartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.True(t, got.AllowWaitingOrder)
		require.Len(t, got.Products, 1)
		_, _ = io.WriteString(w, `{"canProceed":true,"waitingForStock":false,"orderStatus":"Pending","message":"ok"}`)
	})

	res, err := client.ConfirmCart(context.Background(), ConfirmCartRequest{
		KeycloakID:        "kc-1",
		AllowWaitingOrder: true,
		Products:          []ConfirmProduct{{VariantID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, res.CanProceed)
	assert.Equal(t, "Pending", res.OrderStatus)
}

func TestFetchOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/YC-0001", r.URL.Path)
		_, _ = io.WriteString(w, `{"orderCode":"YC-0001","orderStatus":"Delivered","shippingFee":30000,
			"items":[{"variantId":1,"productName":"Giày","price":500000,"quantity":1,
			"promotion":{"promotionCode":"SALE10","discountAmount":50000}}],
			"voucher":{"code":"SALE10","type":"percentage","value":"10","discountAmount":45000}}`)
	})

	order, err := client.FetchOrder(context.Background(), "YC-0001")
	require.NoError(t, err)
	assert.Equal(t, "Delivered", order.Status)
	require.Len(t, order.Items, 1)
	require.NotNil(t, order.Items[0].Promotion)
	require.NotNil(t, order.Voucher)
	assert.Equal(t, "10", order.Voucher.Value.String())
}

func TestFetchOrder_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status":404,"error":"Not Found","message":"order YC-9 not found"}`)
	})

	_, err := client.FetchOrder(context.Background(), "YC-9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

func TestDo_ServerErrorIsRetriedThenMapped(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.RemoveItem(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, errors.Is(err, apperrors.ErrBadGateway))
}

func TestDo_PostsAreSentOnce(t *testing.T) {
	tests := map[string]func(*Client) error{
		"confirm": func(c *Client) error {
			_, err := c.ConfirmCart(context.Background(), ConfirmCartRequest{
				KeycloakID: "kc-1", Products: []ConfirmProduct{{VariantID: 1, Quantity: 2}},
			})
			return err
		},
		"add item": func(c *Client) error {
			return c.AddItem(context.Background(), AddCartItemRequest{KeycloakID: "kc-1", VariantID: 5, Quantity: 2})
		},
	}
	for name, call := range tests {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				_, _ = io.WriteString(w, `{"canProceed":true}`)
			})

			err := call(client)
			assert.True(t, errors.Is(err, apperrors.ErrBadGateway))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestDo_UnavailableMapsTo503(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := client.UpdateQuantity(context.Background(), UpdateCartItemRequest{KeycloakID: "kc", VariantID: 1, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	base := httpclient.New(httpclient.Config{Timeout: time.Second, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, MaxConnsPerHost: 1})
	client := NewClient(base, addr, newTestLogger())

	_, err := client.FetchCart(context.Background(), "kc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestDo_CircuitOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	base := httpclient.New(httpclient.Config{Timeout: time.Second, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, MaxConnsPerHost: 1})
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
		Name: "backend-open-test", MaxRequests: 1, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 1,
	}, newTestLogger())
	client := NewClient(cb, srv.URL, newTestLogger())

	_ = client.RemoveItem(context.Background(), 1)
	err := client.RemoveItem(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpclient.ErrCircuitOpen))
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, client.Ping(context.Background()))
}
