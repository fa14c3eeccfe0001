package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"account-service/internal/account"
	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/db"
	"account-service/internal/observability"
)

const (
	ServiceName    = "account-service"
	ServiceVersion = "0.1.0"
)

type Options struct {
	LoadDotEnv bool
	// Serverless builds the runtime for api/index.go.
	Serverless bool
}

type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Handler http.Handler
	Close   func() error
}

func Build(ctx context.Context, options Options) (*Runtime, error) {
	cfg, err := config.Load(config.LoadOptions{DotEnv: options.LoadDotEnv})
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Service:     ServiceName,
		Environment: cfg.Environment,
	})
	slog.SetDefault(logger)

	// A broken key makes every login fail, so refuse to start instead.
	signer, err := auth.NewHMACSigner(auth.SignerConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token signer: %w", err)
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, ServiceVersion); err != nil {
		logger.Error("init_sentry_failed", slog.String("error", err.Error()))
	}

	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	database, err := OpenDatabase(ctx, cfg)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	closeAll := func() error {
		observability.FlushSentry()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(database.Close(), tracerProvider.Shutdown(shutdownCtx))
	}

	if migrateOnStart(cfg, options) {
		if err := db.RunMigrations(ctx, database, logger); err != nil {
			_ = closeAll()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	repo := auth.NewRepository(database)
	if err := auth.BootstrapAdmin(ctx, repo, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	metrics := observability.NewMetrics()
	issuer := auth.NewIssuer(auth.IssuerConfig{
		Store:    repo,
		Signer:   signer,
		Messages: auth.MessagesFor(cfg.LoginLocale),
		Metrics:  metrics,
	})

	handler := NewRouter(RouterDeps{
		Account: account.NewHandler(issuer, signer, logger),
		Signer:  signer,
		Metrics: metrics,
		Health:  database,
		Logger:  logger,
	})

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Handler: handler,
		Close:   closeAll,
	}, nil
}

func migrateOnStart(cfg *config.Config, options Options) bool {
	if options.Serverless {
		return cfg.RunMigrationsOnStartup
	}
	return cfg.RunMigrations
}

// OpenDatabase opens and pings the Postgres pool described by cfg.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return database, nil
}
