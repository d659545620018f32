// Package requestcontext stores request-scoped values shared by middleware and handlers.
package requestcontext

import (
	"context"

	id "schoolbridge/pkg/domain"
)

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
	principalKey struct{}
)

// Principal is the authenticated caller resolved by the auth middleware.
type Principal struct {
	UserID   id.UserID
	Email    string
	Role     id.Role
	SchoolID *id.SchoolID
}

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...id.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the authenticated principal, if any.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserID returns the authenticated user's ID or the zero ID.
func UserID(ctx context.Context) id.UserID {
	if p, ok := GetPrincipal(ctx); ok {
		return p.UserID
	}
	return id.UserID{}
}
