package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/pkg/jwt"
	"github.com/boostsocial/boost-api/internal/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// RoleAdmin is the profile role allowed through RequireAdmin.
const RoleAdmin = "admin"

// RoleLookup resolves the current role of a profile from the database.
type RoleLookup func(ctx context.Context, userID uuid.UUID) (string, error)

// ErrNoToken is returned by BearerToken when no token is present.
var ErrNoToken = errors.New("missing bearer token")

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoToken
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", jwt.ErrInvalidToken
	}
	return parts[1], nil
}

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				if errors.Is(err, ErrNoToken) {
					response.Unauthorized(w, "Missing authorization header")
				} else {
					response.Unauthorized(w, "Invalid authorization header format")
				}
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Role)))
		})
	}
}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RoleKey, role)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetRole extracts role from context
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// IsAdmin reports whether the request passed RequireAdmin or carries an
// admin role that was confirmed against the database.
func IsAdmin(ctx context.Context) bool {
	return GetRole(ctx) == RoleAdmin
}

// RequireAdmin must run after Auth. The token role claim is not trusted: the
// role is re-read through lookup on every request so a demoted admin loses
// access without waiting for token expiry.
func RequireAdmin(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				response.Unauthorized(w, "unauthorized")
				return
			}

			role, err := lookup(r.Context(), userID)
			if err != nil {
				log.Error().Err(err).Str("user_id", userID.String()).Msg("Admin role lookup failed")
				response.Forbidden(w, "Insufficient permissions")
				return
			}
			if role != RoleAdmin {
				log.Warn().Str("user_id", userID.String()).Str("role", role).Msg("Non-admin hit admin route")
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, role)))
		})
	}
}

// ResolveRole returns middleware that replaces the token role with the
// stored one, without rejecting non-admins. Endpoints that serve both owners
// and admins use it before calling IsAdmin.
func ResolveRole(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			role, err := lookup(r.Context(), userID)
			if err != nil {
				role = ""
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, role)))
		})
	}
}
