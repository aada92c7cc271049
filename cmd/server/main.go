package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/config"
	httptransport "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http/handler"
	httpmiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/repository"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/server"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/session"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/telemetry"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newPGXPool,
			newTenantRepository,
			newUserRepository,
			newCouponRepository,
			tenant.NewResolver,
			newSessionManager,
			newRateLimitService,
			newAuditRecorder,
			newAuthHandler,
			newCouponHandler,
			newSubmitHandler,
			newAuthMiddleware,
			newForgeryGuard,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
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

func newTenantRepository(pool *pgxpool.Pool) repository.TenantRepository {
	return repository.NewPostgresTenantRepo(pool)
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newCouponRepository(pool *pgxpool.Pool) repository.CouponRepository {
	return repository.NewPostgresCouponRepo(pool)
}

func newSessionManager(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *session.Manager {
	manager := session.NewManager(cfg.SessionTTL, cfg.SessionSweepInterval, logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			manager.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			manager.Stop()
			return nil
		},
	})

	return manager
}

func newRateLimitService(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) *ratelimit.Service {
	svc := ratelimit.NewService(cfg, logger)
	if cfg.RateLimitBypass {
		logger.Warn("rate limiting bypassed via RATE_LIMIT_BYPASS")
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			svc.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			svc.Stop()
			return nil
		},
	})

	return svc
}

func newAuditRecorder(logger *zap.Logger) audit.Recorder {
	return audit.NewZapRecorder(logger)
}

func newAuthHandler(users repository.UserRepository, sessions *session.Manager, limits *ratelimit.Service, recorder audit.Recorder, cfg config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(users, sessions, limits, recorder, cfg.SessionTTL)
}

func newCouponHandler(coupons repository.CouponRepository, resolver *tenant.Resolver, recorder audit.Recorder) *handler.CouponHandler {
	return handler.NewCouponHandler(coupons, resolver, recorder)
}

func newSubmitHandler(coupons repository.CouponRepository, limits *ratelimit.Service, recorder audit.Recorder) *handler.SubmitHandler {
	return handler.NewSubmitHandler(coupons, limits, recorder)
}

func newAuthMiddleware(sessions *session.Manager) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Sessions: sessions}
}

func newForgeryGuard(recorder audit.Recorder) *httpmiddleware.ForgeryGuard {
	return httpmiddleware.NewForgeryGuard(recorder)
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
