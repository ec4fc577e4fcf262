package grpcserver

import (
	"context"
	"fmt"
	"net"

	"github.com/reactiverates/users/config"
	"github.com/reactiverates/users/internal/observability"
	"github.com/reactiverates/users/middleware"
	"github.com/reactiverates/users/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultMethodRoles is the RPC counterpart of the REST authorization table
func DefaultMethodRoles() MethodRoles {
	anyUser := []string{string(models.RoleUser), string(models.RoleModerator), string(models.RoleAdmin)}
	return MethodRoles{
		CreateUserMethod:        {string(models.RoleModerator), string(models.RoleAdmin)},
		GetUserByIDMethod:       anyUser,
		GetUserByUsernameMethod: anyUser,
	}
}

// Server hosts the users RPC service and the standard health service
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	address    string
	logger     *zap.Logger
}

// NewServer builds the gRPC server and its interceptor chain: recovery,
// request id, authentication, then per-method authorization
func NewServer(
	cfg config.GRPCConfig,
	users UserService,
	authenticator middleware.TokenAuthenticator,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
) *Server {
	auth := NewAuthenticator(authenticator, metrics, logger)
	rules := DefaultMethodRoles()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			UnaryRecoveryInterceptor(logger),
			UnaryRequestIDInterceptor(),
			auth.UnaryAuthInterceptor(),
			UnaryAuthorizationInterceptor(rules, logger),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor(logger),
			StreamRequestIDInterceptor(),
			auth.StreamAuthInterceptor(),
			StreamAuthorizationInterceptor(rules, logger),
		),
	)

	RegisterUsersServer(grpcServer, NewUsersService(users, logger))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(UsersServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		address:    cfg.Address(),
		logger:     logger,
	}
}

// ListenAndServe listens on the configured address and serves until stopped
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until the server is stopped
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("gRPC server starting", zap.String("address", ln.Addr().String()))

	if err := s.grpcServer.Serve(ln); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// GracefulStop drains in-flight calls, falling back to a hard stop when ctx
// is done first
func (s *Server) GracefulStop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		s.grpcServer.Stop()
		s.logger.Warn("gRPC server forced to stop", zap.Error(ctx.Err()))
	}
}

// GRPCServer returns the underlying grpc.Server
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}
