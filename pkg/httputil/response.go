package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/pkg/logger"
	"github.com/nongtiensonpro/yellowcat/pkg/validator"
)

// Response is the envelope every endpoint answers with. Exactly one of Data
// and Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope. Fields maps form inputs
// to messages for validation failures.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with status. Encoding errors are ignored because the
// status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	if r != nil {
		body.RequestID = logger.CorrelationIDFromContext(r.Context())
	}
	WriteJSON(w, status, Response{Error: &body})
}

// classify turns err into the status and public body of the response.
// Messages of unclassified errors never leak.
func classify(err error) (int, ErrorResponse) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  ve.Fields(),
		}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	}

	for _, k := range sentinels {
		if errors.Is(err, k.err) {
			msg := k.message
			if msg == "" {
				msg = err.Error()
			}
			return apperrors.HTTPStatus(k.err), ErrorResponse{Code: k.code, Message: msg}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
}

// sentinels names bare sentinel errors. An empty message exposes err's own
// text, which is only safe for caller input problems.
var sentinels = []struct {
	err     error
	code    string
	message string
}{
	{apperrors.ErrNotFound, "NOT_FOUND", "resource not found"},
	{apperrors.ErrAlreadyExists, "ALREADY_EXISTS", "resource already exists"},
	{apperrors.ErrConflict, "CONFLICT", "request conflicts with current state"},
	{apperrors.ErrInvalidInput, "INVALID_INPUT", ""},
	{apperrors.ErrUnauthorized, "UNAUTHORIZED", "authentication required"},
	{apperrors.ErrForbidden, "FORBIDDEN", "access denied"},
	{apperrors.ErrGone, "GONE", "resource no longer available"},
	{apperrors.ErrUnprocessable, "UNPROCESSABLE", "request cannot be processed"},
	{apperrors.ErrServiceUnavail, "SERVICE_UNAVAILABLE", "service temporarily unavailable"},
	{apperrors.ErrBadGateway, "BAD_GATEWAY", "upstream service failed"},
}

// WriteError renders err as an error envelope carrying the request's
// correlation id. Failures of 500 and above are logged with the
// request-scoped logger when RequestLogger is mounted, else with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, body := classify(err)

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.Int("status", status),
			slog.String("code", body.Code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	writeProblem(w, r, status, body)
}

// WriteValidationError answers 400. Field-level failures are listed under
// fields; any other error becomes INVALID_INPUT with its message.
func WriteValidationError(w http.ResponseWriter, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		status, body := classify(ve)
		writeProblem(w, nil, status, body)
		return
	}
	writeProblem(w, nil, http.StatusBadRequest, ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
}

// ParseID parses a positive integer path parameter. On failure it answers
// 400 INVALID_PARAMETER and returns false.
func ParseID(w http.ResponseWriter, name, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err == nil && id > 0 {
		return id, true
	}
	writeProblem(w, nil, http.StatusBadRequest, ErrorResponse{
		Code:    "INVALID_PARAMETER",
		Message: fmt.Sprintf("invalid %s: %q", name, param),
	})
	return 0, false
}

const maxBodyBytes = 1 << 20

// DecodeJSON reads at most 1 MiB of JSON into dst, rejecting unknown
// fields. On failure it answers 400 INVALID_INPUT and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, r, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}
