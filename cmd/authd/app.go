package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/rolegate/authd/internal/api/handler"
	"github.com/rolegate/authd/internal/core/ports"
	"github.com/rolegate/authd/internal/core/service"
	"github.com/rolegate/authd/internal/infrastructure/db/mongo"
	"github.com/rolegate/authd/internal/infrastructure/db/redis"
	"github.com/rolegate/authd/internal/infrastructure/queue"
	"github.com/rolegate/authd/internal/infrastructure/security"
	"github.com/rolegate/authd/internal/pkg/config"
	"github.com/rolegate/authd/pkg/logger"
)

// application holds the wired collaborators. In stateless mode only the
// token service and authenticator are built.
type application struct {
	tokens        ports.TokenService
	authenticator ports.Authenticator

	mongoClient *mongodriver.Client
	db          *mongodriver.Database
	redisClient *goredis.Client

	users      ports.UserService
	dispatcher *queue.Dispatcher
	bootstrap  *service.Bootstrapper
}

func newApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*application, error) {
	clock := security.SystemClock{}

	tokens, err := service.NewTokenService(cfg.Security.Secret, cfg.Security.TokenValidity, clock, logger.Component("token"))
	if err != nil {
		return nil, err
	}
	app := &application{tokens: tokens}

	if !cfg.Security.UseDatabase {
		app.authenticator = service.NewAuthenticator(false, tokens, nil, logger.Component("authenticator"))
		log.Info().Str("mode", app.authenticator.Mode()).Msg("authentication configured")
		return app, nil
	}

	app.mongoClient, app.db, err = mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "authd",
	})
	if err != nil {
		return nil, err
	}
	if err := mongo.EnsureIndexes(ctx, app.db); err != nil {
		app.Close(ctx)
		return nil, err
	}

	app.redisClient, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	roleRepo := mongo.NewRoleRepository(app.db)
	userRepo := mongo.NewUserRepository(app.db, roleRepo)
	roles := service.NewRoleService(roleRepo, logger.Component("roles"))
	perms := service.NewPermissionService(mongo.NewPermissionRepository(app.db), roles, logger.Component("permissions"))
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)

	audit := service.NewAuditService(mongo.NewEventRepository(app.db), logger.Component("audit"))
	app.dispatcher = queue.NewDispatcher(cfg.AuditWorkers, audit, logger.Component("dispatcher"))

	app.users = service.NewUserService(userRepo, roles, perms, tokens, hasher, clock, logger.Component("users"),
		service.WithLoginLimiter(redis.NewLoginLimiter(app.redisClient, cfg.Security.LoginMaxAttempts, cfg.Security.LoginLockout)),
		service.WithAuditSink(app.dispatcher),
	)
	app.bootstrap = service.NewBootstrapper(roles, perms, userRepo, hasher, clock, logger.Component("bootstrap"))
	app.authenticator = service.NewAuthenticator(true, tokens, userRepo, logger.Component("authenticator"))

	log.Info().Str("mode", app.authenticator.Mode()).Msg("authentication configured")
	return app, nil
}

// readinessChecks lists the backing services the readiness probe pings.
func (a *application) readinessChecks() map[string]handler.DependencyCheck {
	checks := make(map[string]handler.DependencyCheck)
	if a.db != nil {
		checks["mongodb"] = func(ctx context.Context) error { return mongo.Ping(ctx, a.db) }
	}
	if a.redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, a.redisClient, 2*time.Second) }
	}
	return checks
}

// runBootstrap seeds roles, permissions and the admin account.
func (a *application) runBootstrap(ctx context.Context, admin config.AdminConfig) error {
	if a.bootstrap == nil {
		return fmt.Errorf("bootstrap requires SECURITY_USE_DATABASE=true")
	}
	return a.bootstrap.Run(ctx, service.AdminAccount{
		Email:     admin.Email,
		Password:  admin.Password,
		Firstname: admin.Firstname,
		Lastname:  admin.Lastname,
	})
}

func (a *application) Close(ctx context.Context) {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}
}
