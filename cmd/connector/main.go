package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sproutline/social-connector/internal/adapter/platform"
	"github.com/sproutline/social-connector/internal/adapter/session"
	"github.com/sproutline/social-connector/internal/config"
	httptransport "github.com/sproutline/social-connector/internal/http"
	"github.com/sproutline/social-connector/internal/http/handler"
	apimiddleware "github.com/sproutline/social-connector/internal/middleware"
	"github.com/sproutline/social-connector/internal/migrate"
	"github.com/sproutline/social-connector/internal/repository"
	"github.com/sproutline/social-connector/internal/server"
	"github.com/sproutline/social-connector/internal/service/connect"
	"github.com/sproutline/social-connector/internal/service/publish"
	"github.com/sproutline/social-connector/internal/telemetry"
	"github.com/sproutline/social-connector/internal/transit"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newPGXPool,
			newRedisClient,
			newConnectionRepository,
			newSessionResolver,
			newSessionResolverInterface,
			newStateCodec,
			newPlatformRegistry,
			newRateLimiter,
			connect.NewConnectionService,
			publish.NewPublisher,
			handler.NewSocialHandler,
			newHealthHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newConnectionRepository(pool *pgxpool.Pool) repository.ConnectionRepository {
	return repository.NewPostgresConnectionRepo(pool)
}

func newSessionResolver(client redis.UniversalClient) *session.RedisResolver {
	return session.NewRedisResolver(client)
}

func newSessionResolverInterface(r *session.RedisResolver) repository.SessionResolver {
	return r
}

func newStateCodec(cfg config.Config) *transit.Codec {
	return transit.NewCodec(cfg.StateSigningSecret)
}

func newPlatformRegistry(cfg config.Config) *platform.Registry {
	client := &http.Client{Timeout: cfg.PlatformHTTPTimeout}
	var adapters []platform.Adapter
	if cfg.X.Configured() {
		adapters = append(adapters, platform.NewX(cfg.X, cfg.RedirectBaseURL, client))
	}
	if cfg.LinkedIn.Configured() {
		adapters = append(adapters, platform.NewLinkedIn(cfg.LinkedIn, cfg.RedirectBaseURL, client))
	}
	return platform.NewRegistry(adapters...)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newHealthHandler(pool *pgxpool.Pool, resolver *session.RedisResolver) *handler.HealthHandler {
	return handler.NewHealthHandler(pool, resolver)
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
