package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/reactiverates/users/internal/observability"
	"github.com/reactiverates/users/middleware"
	"github.com/reactiverates/users/security"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// RequestIDHeader is the metadata key for request ID
	RequestIDHeader = "x-request-id"

	// AuthorizationHeader is the metadata key carrying the bearer token
	AuthorizationHeader = "authorization"
)

// UnaryRecoveryInterceptor turns a handler panic into codes.Internal
func UnaryRecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				resp = nil
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// StreamRecoveryInterceptor turns a stream handler panic into codes.Internal
func StreamRecoveryInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered in gRPC stream handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(srv, stream)
	}
}

// UnaryRequestIDInterceptor binds the caller's x-request-id, or a fresh one,
// to the context and echoes it in the response header
func UnaryRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, requestID := ensureRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))
		return handler(ctx, req)
	}
}

// StreamRequestIDInterceptor is the streaming form of UnaryRequestIDInterceptor
func StreamRequestIDInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, requestID := ensureRequestID(stream.Context())
		_ = stream.SetHeader(metadata.Pairs(RequestIDHeader, requestID))
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: ctx})
	}
}

func ensureRequestID(ctx context.Context) (context.Context, string) {
	if values := metadata.ValueFromIncomingContext(ctx, RequestIDHeader); len(values) > 0 && values[0] != "" {
		return middleware.WithRequestID(ctx, values[0]), values[0]
	}
	requestID := uuid.New().String()
	return middleware.WithRequestID(ctx, requestID), requestID
}

// Authenticator resolves the bearer token of each call. It never rejects: a
// missing or bad token leaves the call anonymous.
type Authenticator struct {
	authenticator middleware.TokenAuthenticator
	metrics       *observability.AuthMetrics
	logger        *zap.Logger
}

// NewAuthenticator creates an Authenticator. metrics may be nil.
func NewAuthenticator(authenticator middleware.TokenAuthenticator, metrics *observability.AuthMetrics, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		authenticator: authenticator,
		metrics:       metrics,
		logger:        logger,
	}
}

// UnaryAuthInterceptor binds the call's authentication to its context
func (a *Authenticator) UnaryAuthInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(a.authenticate(ctx, info.FullMethod), req)
	}
}

// StreamAuthInterceptor is the streaming form of UnaryAuthInterceptor
func (a *Authenticator) StreamAuthInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx := a.authenticate(stream.Context(), info.FullMethod)
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: ctx})
	}
}

func (a *Authenticator) authenticate(ctx context.Context, method string) context.Context {
	start := time.Now()
	ctx = middleware.WithAuthentication(ctx, nil)

	token := bearerToken(ctx)
	if token == "" {
		a.metrics.RecordAuthentication(observability.TransportGRPC, string(security.OutcomeAnonymous), time.Since(start))
		return ctx
	}

	auth, err := middleware.AuthenticateToken(a.authenticator, token)
	outcome := security.OutcomeOf(err)
	a.metrics.RecordAuthentication(observability.TransportGRPC, string(outcome), time.Since(start))

	if err != nil {
		a.logger.Warn("bearer token rejected",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("method", method),
			zap.String("reason", string(outcome)),
			zap.Error(err))
		return ctx
	}

	a.logger.Debug("authentication successful",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("username", auth.Username()),
		zap.Strings("authorities", auth.Authorities()))
	return middleware.WithAuthentication(ctx, auth)
}

func bearerToken(ctx context.Context) string {
	for _, value := range metadata.ValueFromIncomingContext(ctx, AuthorizationHeader) {
		if token := middleware.ExtractBearerToken(value); token != "" {
			return token
		}
	}
	return ""
}

// MethodRoles maps a full method name to the roles allowed to call it.
// Methods without an entry are public.
type MethodRoles map[string][]string

// UnaryAuthorizationInterceptor rejects anonymous calls to protected methods
// with codes.Unauthenticated and calls lacking every listed role with
// codes.PermissionDenied
func UnaryAuthorizationInterceptor(rules MethodRoles, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if err := authorize(ctx, rules, info.FullMethod, logger); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthorizationInterceptor is the streaming form of
// UnaryAuthorizationInterceptor
func StreamAuthorizationInterceptor(rules MethodRoles, logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := authorize(stream.Context(), rules, info.FullMethod, logger); err != nil {
			return err
		}
		return handler(srv, stream)
	}
}

func authorize(ctx context.Context, rules MethodRoles, method string, logger *zap.Logger) error {
	roles, protected := rules[method]
	if !protected {
		return nil
	}

	auth := middleware.GetAuthenticationFromContext(ctx)
	if !auth.IsAuthenticated() {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !auth.HasAnyRole(roles...) {
		logger.Warn("insufficient permissions",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("method", method),
			zap.String("username", auth.Username()),
			zap.Strings("required_roles", roles),
			zap.Strings("authorities", auth.Authorities()))
		return status.Error(codes.PermissionDenied, "insufficient permissions")
	}
	return nil
}

// wrappedServerStream overrides the stream context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
