// Package auth authenticates bearer tokens and guards routes by role or capability.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"schoolbridge/internal/auth/models"
	"schoolbridge/internal/authz"
	jwttoken "schoolbridge/internal/jwt_token"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwttoken.AccessTokenClaims, error)
}

// UserLoader loads the account behind a token.
type UserLoader interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

func unauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth validates the bearer token, loads the account and stores the principal in the
// request context. Missing or inactive accounts and tokens minted before the account's last
// "logout everywhere" are rejected with 401.
func RequireAuth(validator TokenValidator, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				unauthorized(w, "missing or invalid authorization header")
				return
			}

			claims, err := validator.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token", "error", err, "request_id", requestID)
				unauthorized(w, "invalid or expired token")
				return
			}
			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims", "error", err, "request_id", requestID)
				unauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.FindByID(ctx, userID)
			if errors.Is(err, sentinel.ErrNotFound) {
				unauthorized(w, "user not found")
				return
			}
			if err != nil {
				logger.ErrorContext(ctx, "failed to load user for token", "error", err, "request_id", requestID)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to authenticate"))
				return
			}
			if !user.IsActive {
				unauthorized(w, "account is deactivated")
				return
			}
			if user.TokenVersion != claims.TokenVersion {
				logger.WarnContext(ctx, "unauthorized access - revoked token", "user_id", user.ID.String(), "request_id", requestID)
				unauthorized(w, "token has been revoked")
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{
				UserID:   user.ID,
				Email:    user.Email,
				Role:     user.Role,
				SchoolID: user.SchoolID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not listed. It must run after RequireAuth.
func RequireRole(roles ...id.Role) func(http.Handler) http.Handler {
	return guard(func(p requestcontext.Principal) bool { return p.HasRole(roles...) })
}

// RequireCapability rejects callers whose role does not grant capability. It must run after RequireAuth.
func RequireCapability(capability authz.Capability) func(http.Handler) http.Handler {
	return guard(func(p requestcontext.Principal) bool { return authz.Can(p.Role, capability) })
}

func guard(allowed func(requestcontext.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := requestcontext.GetPrincipal(r.Context())
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			if !allowed(p) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
