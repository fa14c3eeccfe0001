package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"account-service/internal/app"
	"account-service/internal/config"
	"account-service/internal/db"
	"account-service/internal/observability"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var noDotEnv bool

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the account HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), !noDotEnv)
		},
	}

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Account login service issuing JWT access and refresh tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().BoolVar(&noDotEnv, "no-dotenv", false, "Do not load a .env file from the working directory")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), !noDotEnv)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", app.ServiceName, app.ServiceVersion)
		},
	})

	return cmd
}

func runServe(parent context.Context, dotEnv bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runtime, err := app.Build(ctx, app.Options{LoadDotEnv: dotEnv})
	if err != nil {
		return err
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			runtime.Logger.Error("close_runtime_failed", slog.String("error", err.Error()))
		}
	}()

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", ":"+runtime.Config.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return app.Serve(ctx, ln, runtime.Handler, runtime.Logger)
}

func runMigrate(ctx context.Context, dotEnv bool) error {
	cfg, err := config.Load(config.LoadOptions{DotEnv: dotEnv})
	if err != nil {
		return err
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Service:     app.ServiceName,
		Environment: cfg.Environment,
	})

	database, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, database, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations_complete")
	return nil
}
