// Package server wires the configured storage backend, services and
// transports together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/auth"
	"github.com/dmitrijs2005/webtoz/internal/server/config"
	"github.com/dmitrijs2005/webtoz/internal/server/ratelimit"
	"github.com/dmitrijs2005/webtoz/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webtoz/internal/server/rest"
	"github.com/dmitrijs2005/webtoz/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/webtoz/internal/server/grpc"
)

const tokenIssuer = "webtoz"

type App struct {
	config        *config.Config
	logger        logging.Logger
	repomanager   repomanager.RepositoryManager
	redis         *redis.Client
	authService   *services.AuthService
	userService   *services.UserService
	avatarService *services.AvatarService
	limiter       ratelimit.Limiter
}

// NewApp connects to the store (running migrations) and to Redis when it
// is configured. Nothing is served until Run.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, logFormat(c))

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	rm, err := repomanager.Open(ctx, repomanager.Options{
		Driver:        c.StoreDriver,
		DatabaseDSN:   c.DatabaseDSN,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, repomanager: rm}

	if c.RedisAddr != "" {
		rc, err := ratelimit.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			_ = rm.Close(ctx)
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = rc
		app.limiter = ratelimit.NewRedisLimiter(rc, c.RateLimitMax, c.RateLimitWindow)
	} else {
		logger.Warn(ctx, "rate limiting disabled, no redis address configured")
	}

	tokens := auth.NewTokenService([]byte(c.SecretKey), c.TokenValidityDuration, auth.WithIssuer(tokenIssuer))
	hasher := auth.NewBcryptHasher(c.BcryptCost)
	notifier := services.NewLogNotifier(logger, !c.IsProduction())

	app.authService = services.NewAuthService(rm.Users(), tokens, hasher, notifier, logger, c.PasswordResetValidityDuration)
	app.userService = services.NewUserService(rm.Users(), logger)
	app.avatarService = services.NewAvatarService(c)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) ensureAdmin(ctx context.Context) error {
	if app.config.AdminEmail == "" {
		return nil
	}
	created, err := app.authService.EnsureAdmin(ctx, app.config.AdminName, app.config.AdminEmail, app.config.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		app.logger.Info(ctx, "admin account bootstrapped", "email", app.config.AdminEmail)
	}
	return nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := rest.NewRouter(rest.RouterOptions{
		Auth:        app.authService,
		Users:       app.userService,
		Avatars:     app.avatarService,
		Store:       app.repomanager.Users(),
		Limiter:     app.limiter,
		Logger:      app.logger,
		CORSOrigin:  app.config.CORSOrigin,
		Environment: app.config.Environment,
	})

	s := rest.NewServer(app.config.EndpointAddrHTTP, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and, when an address is configured, gRPC until ctx is
// cancelled, a signal arrives, or either server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment, "store", app.config.StoreDriver)

	app.initSignalHandler(cancelFunc)

	if err := app.ensureAdmin(ctx); err != nil {
		app.logger.Error(ctx, "admin bootstrap failed", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.repomanager.Close(ctx); err != nil {
		app.logger.Warn(ctx, "store close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// logFormat selects JSON logs in production and text logs elsewhere.
func logFormat(c *config.Config) string {
	if c.IsProduction() {
		return "json"
	}
	return "text"
}
