package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/reactiverates/users/config"
	"github.com/reactiverates/users/handlers"
	"github.com/reactiverates/users/internal/observability"
	"github.com/reactiverates/users/middleware"
	"github.com/reactiverates/users/repositories"
	"github.com/reactiverates/users/repositories/postgres"
	"github.com/reactiverates/users/security"
	"github.com/reactiverates/users/services/users"
	"go.uber.org/zap"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "users"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Auth
	Authenticator  *security.Authenticator
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *observability.AuthMetrics

	// Services
	UserService *users.UserService

	// Handlers
	UserHandler   *handlers.UserHandler
	AuthHandler   *handlers.AuthHandler
	AccessHandler *handlers.AccessHandler
	HealthHandler *handlers.HealthHandler
}

// NewDependencies opens the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires dependencies over an already opened
// repository factory
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initAuth()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase verifies the connection and creates the schema when enabled
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if d.Config.Database.AutoMigrate {
		if err := d.RepoFactory.InitSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initAuth builds the token pipeline shared by the HTTP and gRPC transports
func (d *Dependencies) initAuth() {
	jwtCfg := d.Config.JWT

	verifier := security.NewSignatureVerifier([]byte(jwtCfg.Secret), security.WithLeeway(jwtCfg.ClockSkew))
	policy := security.NewPolicyChecker(nil)
	d.Authenticator = security.NewAuthenticator(verifier, policy,
		security.WithRequireExpiration(jwtCfg.RequireExpiration))

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = observability.NewAuthMetrics(MetricsNamespace)
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authenticator, d.Metrics, d.Logger)

	if jwtCfg.Secret == config.DefaultJWTSecret {
		d.Logger.Warn("using the development JWT secret")
	}
	d.Logger.Info("authentication initialized", zap.String("jwt", jwtCfg.LogString()))
}

func (d *Dependencies) initServices() {
	d.UserService = users.NewUserService(d.Users, d.TxManager, d.Logger)
}

func (d *Dependencies) initHandlers() {
	d.UserHandler = handlers.NewUserHandler(d.UserService, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Authenticator, d.Logger)
	d.AccessHandler = handlers.NewAccessHandler(d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
