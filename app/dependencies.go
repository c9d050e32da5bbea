package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/relife/service-api/config"
	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/handlers"
	"github.com/relife/service-api/identity"
	"github.com/relife/service-api/internal/observability"
	"github.com/relife/service-api/keycloak"
	"github.com/relife/service-api/middleware"
	"github.com/relife/service-api/repositories/supabase"
	"github.com/relife/service-api/services"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Upstream clients
	IdentityClient *identity.Client
	TokenExchanger *keycloak.TokenExchanger
	RoleResolver   *keycloak.RoleResolver

	// Data access
	Handles      *dataapi.Factory
	Repositories *supabase.RepositoryFactory

	// Auth
	Authenticator  *services.Authenticator
	AuthMiddleware *middleware.AuthMiddleware

	// Handlers
	HealthHandler   *handlers.HealthHandler
	IdentityHandler *handlers.IdentityHandler
	ReportHandler   *handlers.ReportHandler
	AdminHandler    *handlers.AdminHandler
	StorageHandler  *handlers.StorageHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics()
	deps.initAuth(cfg)
	deps.initDataAccess(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		zap.String("identity_backend", cfg.IdentityBackend.URL),
		zap.String("bucket", cfg.Storage.BucketName),
		zap.Bool("metrics_enabled", cfg.Observability.MetricsEnabled))
	return deps, nil
}

// initMetrics creates a private registry so tests can build several instances
func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.IdentityClient = identity.NewClient(cfg.IdentityBackend)
	d.TokenExchanger = keycloak.NewTokenExchanger(cfg.AuthServer.Timeout)
	d.RoleResolver = keycloak.NewRoleResolver(cfg.AuthServer.Timeout)

	d.Authenticator = services.NewAuthenticator(
		d.IdentityClient,
		d.TokenExchanger,
		d.RoleResolver,
		cfg,
		d.Metrics,
		d.Logger.Named("auth"),
	)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authenticator, d.Logger)

	d.Logger.Info("authenticator initialized",
		zap.String("admin_role", cfg.AdminRoleName),
		zap.String("client_id", cfg.AuthServer.ClientID))
}

func (d *Dependencies) initDataAccess(cfg *config.Config) {
	d.Handles = dataapi.NewFactory(cfg.IdentityBackend)
	d.Repositories = supabase.NewRepositoryFactory(d.Handles, cfg.Storage.BucketName, d.Logger.Named("repositories"))
}

func (d *Dependencies) initHandlers() {
	d.HealthHandler = handlers.NewHealthHandler(d.Logger)
	d.IdentityHandler = handlers.NewIdentityHandler(d.Logger)
	d.ReportHandler = handlers.NewReportHandler(d.Repositories, d.Logger)
	d.AdminHandler = handlers.NewAdminHandler(d.Repositories, d.Logger)
	d.StorageHandler = handlers.NewStorageHandler(d.Repositories, d.Logger)
}

// Close releases resources held by the dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("closing dependencies")

	// Upstream clients hold no connections beyond the shared transport pool
	if err := d.Logger.Sync(); err != nil {
		d.Logger.Debug("logger sync failed", zap.Error(err))
	}

	return nil
}
