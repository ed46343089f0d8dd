package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authn"
	"github.com/hashim1213/soluly-business-suite-sub004/config"
	"github.com/hashim1213/soluly-business-suite-sub004/middleware"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories/postgres"
	"github.com/hashim1213/soluly-business-suite-sub004/services/audit"
	"github.com/hashim1213/soluly-business-suite-sub004/services/org"
	"github.com/hashim1213/soluly-business-suite-sub004/services/project"
	sessionsvc "github.com/hashim1213/soluly-business-suite-sub004/services/session"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger
	Cache  *redis.Client

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Organizations repositories.OrganizationRepository
	Users         repositories.UserRepository
	Memberships   repositories.MembershipRepository
	Projects      repositories.ProjectRepository
	AuditLogs     repositories.AuditRepository
	TxManager     repositories.TransactionManager

	// Token validation and issuance
	Validator *authn.Validator

	// Services
	Audit    *audit.AuditService
	Sessions *sessionsvc.Service
	Orgs     *org.Service
	ProjectS *project.Service

	// Middleware
	AuthMiddleware *middleware.AuthMiddleware
	CSRF           *middleware.CSRFMiddleware
	OrgGuard       *middleware.OrgGuard
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := deps.initCache(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	deps.initServices(cfg)
	deps.initMiddleware(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() error {
	repos := d.RepoFactory.NewRepositories()

	d.Organizations = repos.Organizations
	d.Users = repos.Users
	d.Memberships = repos.Memberships
	d.Projects = repos.Projects
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initCache connects the optional redis snapshot cache. A missing
// REDIS_ADDR disables caching; a configured but unreachable redis is a
// startup failure.
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) error {
	if !cfg.Redis.Enabled() {
		d.Logger.Info("snapshot cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	d.Cache = client
	d.Logger.Info("snapshot cache connected", zap.String("addr", cfg.Redis.Addr))
	return nil
}

// initServices wires the domain services over the repositories
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Validator = authn.NewValidator(authn.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
	})

	d.Audit = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})

	var cache *sessionsvc.SnapshotCache
	if d.Cache != nil {
		cache = sessionsvc.NewSnapshotCache(d.Cache, cfg.Redis.TTL, d.Logger)
	}
	d.Sessions = sessionsvc.NewService(d.Validator, d.Users, d.Organizations, d.Memberships, cache, d.Logger)

	d.Orgs = org.NewService(d.TxManager, d.Organizations, d.Users, d.Memberships, d.Audit, d.Logger)
	d.ProjectS = project.NewService(d.Projects, d.Logger)
}

// initMiddleware wires the route-boundary middlewares
func (d *Dependencies) initMiddleware(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(
		&claimsValidatorAdapter{validator: d.Validator}, d.Logger)
	d.CSRF = middleware.NewCSRFMiddleware(d.Logger, d.Audit)
	d.OrgGuard = middleware.NewOrgGuard(d.Sessions, d.Audit, d.Logger, cfg.Auth.SignInPath)
}

// claimsValidatorAdapter adapts authn.Validator to middleware.TokenValidator
type claimsValidatorAdapter struct {
	validator *authn.Validator
}

func (a *claimsValidatorAdapter) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	parsed, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		Sub:     parsed.Sub,
		Email:   parsed.Email,
		Name:    parsed.Name,
		OrgSlug: parsed.OrgSlug,
	}, nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		if err := d.Audit.Stop(d.Config.Audit.StopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		} else {
			d.Logger.Info("snapshot cache closed")
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
