// Package app wires configuration into the stores, the queue service and the
// HTTP server. Both the server and the CLI commands start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"service-queue/internal/config"
	"service-queue/internal/flag"
	"service-queue/internal/http/router"
	"service-queue/internal/queue"
	"service-queue/internal/store/sqlstore"
	"service-queue/internal/telemetry"
)

const flagKeyPrefix = "sqm"

type App struct {
	Config config.AppConfig
	Logger *zap.Logger
	Store  *sqlstore.Store
	Flags  flag.Store
	Queue  *queue.Service
	Tokens *config.TokenIssuer

	redis             *redis.Client
	shutdownTelemetry func(context.Context) error
}

// New opens the database and the flag store and builds the queue service.
func New(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	a.shutdownTelemetry = telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
	}, logger)

	a.Store, err = sqlstore.Open(ctx, sqlstore.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Logger: logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	logger.Info("database connected", zap.String("driver", cfg.DBDriver))

	switch cfg.FlagBackend {
	case "memory":
		a.Flags = flag.NewMemoryStore()
	default:
		a.redis, err = config.NewRedis(ctx, cfg)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Flags = flag.NewRedisStore(a.redis, flagKeyPrefix)
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	}

	a.Queue, err = queue.NewService(queue.Config{
		Entries:        a.Store,
		Flags:          a.Flags,
		Scope:          cfg.TenantScope,
		Location:       location,
		PollInterval:   cfg.PollInterval,
		DefaultTimeout: cfg.PollTimeout,
		MaxTimeout:     cfg.MaxPollTimeout,
		Logger:         logger.Named("queue"),
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Tokens = config.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	return a, nil
}

// Close releases everything New opened. Safe on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.shutdownTelemetry != nil {
		errs = append(errs, a.shutdownTelemetry(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) HTTP() *fiber.App {
	return router.New(router.Deps{
		Queue:       a.Queue,
		Operators:   a.Store,
		Tokens:      a.Tokens,
		Logger:      a.Logger,
		CORSOrigins: a.Config.CORSOrigins,
	})
}

// Serve migrates the schema and listens until ctx is canceled, then drains
// in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Config.ValidateServer(); err != nil {
		return err
	}
	if err := a.Store.Migrate(ctx); err != nil {
		return err
	}

	server := a.HTTP()
	addr := a.Config.Address()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", zap.String("address", addr))
		errCh <- server.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		// long-poll bisa menahan request sampai max_poll_timeout
		grace := a.Config.MaxPollTimeout + 5*time.Second
		a.Logger.Info("server shutting down", zap.Duration("grace", grace))
		if err := server.ShutdownWithTimeout(grace); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
