package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		err      *AppError
		code     string
		status   int
		sentinel error
		message  string
	}{
		{NotFound("order", "YC-1001"), "NOT_FOUND", http.StatusNotFound, ErrNotFound, "order with id YC-1001 not found"},
		{AlreadyExists("promotion", "code", "TET2025"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists, `promotion with code "TET2025" already exists`},
		{InvalidInput("variantId is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, "variantId is required"},
		{Unauthorized("missing bearer token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized, "missing bearer token"},
		{Forbidden("admin role required"), "FORBIDDEN", http.StatusForbidden, ErrForbidden, "admin role required"},
		{Conflict("cart changed"), "CONFLICT", http.StatusConflict, ErrConflict, "cart changed"},
		{Gone("order archived"), "GONE", http.StatusGone, ErrGone, "order archived"},
		{Unprocessable("only 2 left"), "UNPROCESSABLE", http.StatusUnprocessableEntity, ErrUnprocessable, "only 2 left"},
		{ServiceUnavailable("backend down", nil), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail, "backend down"},
		{BadGateway("backend sent html"), "BAD_GATEWAY", http.StatusBadGateway, ErrBadGateway, "backend sent html"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(fmt.Errorf("handler: %w", tt.err)))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "GONE: order archived", (&AppError{Code: "GONE", Message: "order archived"}).Error())
	assert.Equal(t, "NOT_FOUND: order with id YC-1 not found: resource not found", NotFound("order", "YC-1").Error())
	assert.Nil(t, (&AppError{Code: "X"}).Unwrap())
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ServiceUnavailable("cart backend unreachable", cause)

	assert.ErrorIs(t, err, ErrServiceUnavail)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"bare sentinel":    {ErrNotFound, http.StatusNotFound},
		"wrapped sentinel": {fmt.Errorf("load cart: %w", ErrUnprocessable), http.StatusUnprocessableEntity},
		"already exists":   {ErrAlreadyExists, http.StatusConflict},
		"bad gateway":      {fmt.Errorf("x: %w", ErrBadGateway), http.StatusBadGateway},
		"own status wins":  {&AppError{Code: "TEAPOT", Status: http.StatusTeapot, Err: ErrNotFound}, http.StatusTeapot},
		"unknown":          {errors.New("boom"), http.StatusInternalServerError},
		"nil":              {nil, http.StatusInternalServerError},
	}
	for name, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), name)
	}
}
