// Package server wires the application together: configuration, storage,
// services, the event publisher, and the HTTP endpoint, plus graceful
// shutdown and the background cleanup scheduler.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/msavelyev/authkeeper/internal/logging"
	"github.com/msavelyev/authkeeper/internal/server/auth"
	"github.com/msavelyev/authkeeper/internal/server/config"
	"github.com/msavelyev/authkeeper/internal/server/events"
	"github.com/msavelyev/authkeeper/internal/server/httpserver"
	"github.com/msavelyev/authkeeper/internal/server/ratelimit"
	"github.com/msavelyev/authkeeper/internal/server/repositories/repomanager"
	"github.com/msavelyev/authkeeper/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	publisher    *events.Async
	amqp         *events.AMQPPublisher
	limiter      *ratelimit.MemoryLimiter
	authService  *services.AuthService
	verification *services.EmailVerificationService
	passwords    *services.PasswordResetService
	httpServer   *httpserver.Server
}

// NewApp connects to the database, runs migrations, and constructs every
// component of the server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, manager, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	// Events go to RabbitMQ when a broker is configured, otherwise to the
	// log. Either way the services publish through a non-blocking wrapper.
	var base events.Publisher
	var amqp *events.AMQPPublisher
	if cfg.AMQPURL != "" {
		amqp, err = events.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("amqp init error: %w", err)
		}
		base = amqp
	} else {
		base = events.NewLogPublisher(logger)
	}
	publisher := events.NewAsync(base, logger, 64)

	tokens := auth.NewTokenService([]byte(cfg.SecretKey),
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
	hasher := auth.NewBcryptHasher()

	authService := services.NewAuthService(db, manager, tokens, hasher, publisher, logger, cfg.VerificationTokenValidity)
	verification := services.NewEmailVerificationService(db, manager, publisher, logger, cfg.VerificationTokenValidity)
	passwords := services.NewPasswordResetService(db, manager, hasher, publisher, logger, cfg.ResetTokenValidity)

	var memLimiter *ratelimit.MemoryLimiter
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		memLimiter = ratelimit.NewMemoryLimiter()
		limiter = memLimiter
	}
	limitCfg := ratelimit.Config{
		Requests:         cfg.RateLimitRequests,
		Window:           cfg.RateLimitWindow,
		EndpointSpecific: true,
	}

	httpServer := httpserver.NewServer(cfg.EndpointAddrHTTP,
		authService, verification, passwords, tokens, limiter, limitCfg, logger)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		publisher:    publisher,
		amqp:         amqp,
		limiter:      memLimiter,
		authService:  authService,
		verification: verification,
		passwords:    passwords,
		httpServer:   httpServer,
	}, nil
}

// Run starts the HTTP server and the cleanup scheduler and blocks until
// the context is cancelled or a component fails. SIGINT/SIGTERM/SIGQUIT
// trigger a graceful shutdown.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "starting app", "addr", app.httpServer.Addr())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		app.runCleanup(ctx)
		return nil
	})

	err := g.Wait()

	app.publisher.Close()
	if app.amqp != nil {
		_ = app.amqp.Close()
	}
	_ = app.db.Close()

	app.logger.Info(context.Background(), "app stopped")
	return err
}

// runCleanup sweeps expired tokens and stale rate-limit buckets on the
// configured interval until the context is cancelled.
func (app *App) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(app.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.cleanupOnce(ctx)
		}
	}
}

func (app *App) cleanupOnce(ctx context.Context) {
	refresh, err := app.authService.CleanupExpiredRefreshTokens(ctx)
	if err != nil {
		app.logger.Error(ctx, "cleanup: refresh tokens", "error", err)
	}
	verification, err := app.verification.CleanupExpiredTokens(ctx)
	if err != nil {
		app.logger.Error(ctx, "cleanup: verification tokens", "error", err)
	}
	reset, err := app.passwords.CleanupExpiredTokens(ctx)
	if err != nil {
		app.logger.Error(ctx, "cleanup: reset tokens", "error", err)
	}

	var buckets int
	if app.limiter != nil {
		buckets = app.limiter.Prune(time.Now())
	}

	app.logger.Info(ctx, "cleanup run",
		"refresh_tokens", refresh,
		"verification_tokens", verification,
		"reset_tokens", reset,
		"rate_limit_buckets", buckets,
	)
}
