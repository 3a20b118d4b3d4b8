package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
)

// maxErrorBody caps how much of a failed reply is read.
const maxErrorBody = 1 << 20

// problem is the code and message recovered from a backend error body.
type problem struct {
	code, message string
}

// decodeProblem understands two bodies: our envelope
// {"error":{"code","message"}} and Spring Boot's default
// {"status","error":"Bad Request","message"}, where the reason phrase
// becomes the code.
func decodeProblem(body []byte) (problem, bool) {
	var raw struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &raw) != nil {
		return problem{}, false
	}

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw.Error, &envelope) == nil && (envelope.Code != "" || envelope.Message != "") {
		return problem{envelope.Code, envelope.Message}, true
	}
	if raw.Message == "" {
		return problem{}, false
	}
	var reason string
	_ = json.Unmarshal(raw.Error, &reason)
	return problem{constantCase(reason), raw.Message}, true
}

func constantCase(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

// statusErrors builds the AppError for the statuses the storefront and admin
// handlers react to.
var statusErrors = map[int]func(string) *apperrors.AppError{
	http.StatusBadRequest:          apperrors.InvalidInput,
	http.StatusConflict:            apperrors.Conflict,
	http.StatusUnauthorized:        apperrors.Unauthorized,
	http.StatusForbidden:           apperrors.Forbidden,
	http.StatusGone:                apperrors.Gone,
	http.StatusUnprocessableEntity: apperrors.Unprocessable,
	http.StatusServiceUnavailable: func(msg string) *apperrors.AppError {
		return apperrors.ServiceUnavailable(msg, nil)
	},
	http.StatusNotFound: func(msg string) *apperrors.AppError {
		return &apperrors.AppError{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
	},
}

// ParseResponseError turns a non-2xx reply from service into an error and
// closes the body. A recognised error body keeps the backend's message and
// maps its status onto an AppError. 5xx replies without one become
// BAD_GATEWAY; other unrecognised replies become plain errors, which render
// as 500.
func ParseResponseError(resp *http.Response, service string) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	p, ok := decodeProblem(body)
	switch {
	case ok:
		return fromProblem(resp.StatusCode, p, service)
	case resp.StatusCode >= 500:
		return apperrors.BadGateway(fmt.Sprintf("%s returned status %d: %s", service, resp.StatusCode, truncate(string(body), 200)))
	default:
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, truncate(string(body), 200))
	}
}

func fromProblem(status int, p problem, service string) error {
	msg := service + ": " + p.message
	if build, ok := statusErrors[status]; ok {
		return build(msg)
	}
	if status >= 500 {
		return apperrors.BadGateway(fmt.Sprintf("%s server error (%d/%s): %s", service, status, p.code, p.message))
	}
	code := p.code
	if code == "" {
		code = constantCase(http.StatusText(status))
	}
	return &apperrors.AppError{Code: code, Message: msg, Status: status}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
