package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emperorhan/custody-settlement/internal/config"
	"github.com/emperorhan/custody-settlement/internal/store/postgres"
	"github.com/spf13/cobra"
)

// Set through -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "settlement",
		Short:         "Deposit and withdrawal settlement for custodial wallets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the settlement loop for every enabled network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("settlement exited with error", "error", err)
				return err
			}
			logger.Info("settlement shut down gracefully")
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadEnv()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			logger := newLogger(cfg)
			if dir == "" {
				dir = cfg.DB.MigrationsDir
			}

			db, err := postgres.New(postgres.Config{
				URL:                cfg.DB.URL,
				MaxOpenConns:       1,
				MaxIdleConns:       1,
				StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
			})
			if err != nil {
				logger.Error("failed to connect to database", "error", err)
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(cmd.Context(), dir); err != nil {
				logger.Error("migration failed", "dir", dir, "error", err)
				return err
			}
			logger.Info("migrations up to date", "dir", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to DB_MIGRATIONS_DIR)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "settlement %s (%s)\n", version, commit)
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

