package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for validated token claims
	ClaimsKey contextKey = "claims"

	// OrgKey is the context key for the guarded organization
	OrgKey contextKey = "org"
)

// Claims represents validated token claims attached to a request
type Claims struct {
	Sub     uuid.UUID `json:"sub"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	OrgSlug string    `json:"org_slug"`
}

// GetRequestIDFromContext retrieves the request ID from context. Falls
// back to the ID chi's RequestID middleware assigned, which is where
// the router stores it.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok && requestID != "" {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds token claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetOrgFromContext retrieves the guarded organization from context.
// Only set after the org guard has allowed the request, so handlers
// below it never see a tenant that differs from the session's.
func GetOrgFromContext(ctx context.Context) *session.Tenant {
	if val := ctx.Value(OrgKey); val != nil {
		if org, ok := val.(*session.Tenant); ok {
			return org
		}
	}
	return nil
}

// WithOrg adds the guarded organization to the context
func WithOrg(ctx context.Context, org *session.Tenant) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}
