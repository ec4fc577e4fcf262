package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/reactiverates/users/internal/observability"
	"github.com/reactiverates/users/security"
	"github.com/reactiverates/users/utils"
	"go.uber.org/zap"
)

// TokenAuthenticator turns a bearer token into an authentication
type TokenAuthenticator interface {
	Authenticate(token string) (*security.Authentication, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator TokenAuthenticator
	metrics       *observability.AuthMetrics
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. metrics may be nil.
func NewAuthMiddleware(authenticator TokenAuthenticator, metrics *observability.AuthMetrics, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		metrics:       metrics,
		logger:        logger,
	}
}

// Authenticate resolves the bearer token, if any, and binds the result to the
// request context. It never rejects a request: a missing or bad token leaves
// the request anonymous and authorization is left to RequireAuthenticated and
// RequireAnyRole.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := WithAuthentication(r.Context(), nil)
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.metrics.RecordAuthentication(observability.TransportHTTP, string(security.OutcomeAnonymous), time.Since(start))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		auth, err := AuthenticateToken(m.authenticator, token)
		outcome := security.OutcomeOf(err)
		m.metrics.RecordAuthentication(observability.TransportHTTP, string(outcome), time.Since(start))

		if err != nil {
			m.logger.Warn("bearer token rejected",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("reason", string(outcome)),
				zap.Error(err))
		} else {
			ctx = WithAuthentication(ctx, auth)
			m.logger.Debug("authentication successful",
				zap.String("request_id", requestID),
				zap.String("username", auth.Username()),
				zap.Strings("authorities", auth.Authorities()))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthenticated rejects anonymous requests with 401
func (m *AuthMiddleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetAuthenticationFromContext(r.Context()).IsAuthenticated() {
			m.logger.Debug("authentication required",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnyRole rejects anonymous requests with 401 and requests holding
// none of roles with 403
func (m *AuthMiddleware) RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			auth := GetAuthenticationFromContext(ctx)
			if !auth.IsAuthenticated() {
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !auth.HasAnyRole(roles...) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("username", auth.Username()),
					zap.Strings("required_roles", roles),
					zap.Strings("authorities", auth.Authorities()))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthenticateToken calls authenticator and reports a panic as an invalid
// token so that no failure escapes to the caller's transport
func AuthenticateToken(authenticator TokenAuthenticator, token string) (auth *security.Authentication, err error) {
	defer func() {
		if r := recover(); r != nil {
			auth = nil
			err = fmt.Errorf("%w: authenticator panic: %v", security.ErrInvalidSignature, r)
		}
	}()
	return authenticator.Authenticate(token)
}

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>"
// header value, or "" when the value uses another scheme
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	return ExtractBearerToken(authHeader)
}
