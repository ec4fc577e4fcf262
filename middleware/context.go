package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/reactiverates/users/security"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// AuthenticationKey is the context key for the request authentication
	AuthenticationKey contextKey = "authentication"
)

// GetRequestIDFromContext retrieves the request ID from context, falling back
// to the ID assigned by chi's RequestID middleware
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

// GetAuthenticationFromContext retrieves the request authentication. A nil
// result means the request is anonymous.
func GetAuthenticationFromContext(ctx context.Context) *security.Authentication {
	if val := ctx.Value(AuthenticationKey); val != nil {
		if auth, ok := val.(*security.Authentication); ok {
			return auth
		}
	}
	return nil
}

// WithAuthentication binds auth to the context. Passing nil masks any
// authentication stored by a parent context.
func WithAuthentication(ctx context.Context, auth *security.Authentication) context.Context {
	return context.WithValue(ctx, AuthenticationKey, auth)
}
