package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nongtiensonpro/yellowcat/pkg/httputil"
	"github.com/nongtiensonpro/yellowcat/pkg/logger"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	rolesKey  contextKeyType = "roles"
)

// Claims represents the JWT claims extracted by the auth middleware.
type Claims struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the claims carry any of the given roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// ErrMissingSubject is returned when a valid token carries no user identity.
var ErrMissingSubject = errors.New("token has no user_id or sub claim")

// HMACValidator returns a TokenValidator for HS256/384/512 tokens signed with
// secret. The user id comes from "user_id", falling back to "sub" (Keycloak).
// Roles are read from "role", "roles" and Keycloak's "realm_access.roles".
func HMACValidator(secret string) TokenValidator {
	key := []byte(secret)
	return func(tokenString string) (*Claims, error) {
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q: %w", token.Method.Alg(), jwt.ErrSignatureInvalid)
			}
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil {
			return nil, err
		}

		mc, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, jwt.ErrTokenInvalidClaims
		}

		claims := &Claims{}
		claims.UserID, _ = mc["user_id"].(string)
		if claims.UserID == "" {
			claims.UserID, _ = mc["sub"].(string)
		}
		if claims.UserID == "" {
			return nil, ErrMissingSubject
		}
		claims.Email, _ = mc["email"].(string)
		claims.Roles = extractRoles(mc)
		return claims, nil
	}
}

func extractRoles(mc jwt.MapClaims) []string {
	var roles []string
	if role, ok := mc["role"].(string); ok && role != "" {
		roles = append(roles, role)
	}
	roles = appendStrings(roles, mc["roles"])
	if realm, ok := mc["realm_access"].(map[string]any); ok {
		roles = appendStrings(roles, realm["roles"])
	}
	return roles
}

func appendStrings(dst []string, v any) []string {
	list, ok := v.([]any)
	if !ok {
		return dst
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			dst = append(dst, s)
		}
	}
	return dst
}

// Auth middleware requires a valid bearer token and injects its claims into
// the request context.
func Auth(validate TokenValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(validate, l, true)
}

// OptionalAuth authenticates the request when an Authorization header is
// present and passes anonymous requests through untouched. A present but
// invalid token is still rejected.
func OptionalAuth(validate TokenValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(validate, l, false)
}

func authenticate(validate TokenValidator, l *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
				return
			}

			claims, err := validate(strings.TrimSpace(token))
			if err != nil {
				l.WarnContext(r.Context(), "invalid bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, rolesKey, claims.Roles)
			ctx = logger.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole middleware checks that the authenticated user has one of the
// required roles. It must be mounted after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			claims := Claims{Roles: RolesFromContext(r.Context())}
			if !claims.HasRole(roles...) {
				writeAuthError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// RolesFromContext extracts the user roles from the request context.
func RolesFromContext(ctx context.Context) []string {
	if roles, ok := ctx.Value(rolesKey).([]string); ok {
		return roles
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="yellowcat"`)
	}
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
