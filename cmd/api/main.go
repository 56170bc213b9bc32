package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cat-backend/internal/config"
	"cat-backend/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
// When empty, APP_VERSION is reported.
var version = ""

func main() {
	rootCmd := &cobra.Command{
		Use:   "cat-backend",
		Short: "Retrieval-augmented question answering over a Qdrant collection",
		Long: `cat-backend answers questions by retrieving documents from Qdrant and
asking an OpenAI-compatible LLM, recording every query in a SQL ledger.

Running without a subcommand starts the HTTP server.`,
		RunE:         runServe,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file (environment variables take precedence)")

	rootCmd.AddCommand(&cobra.Command{
		Use:          "serve",
		Short:        "Start the HTTP server",
		RunE:         runServe,
		SilenceUsage: true,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the query ledger tables",
		RunE:         runMigrate,
		SilenceUsage: true,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", cfg.AppName, cfg.AppVersion)
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if version != "" {
		cfg.AppVersion = version
	}
	return cfg, nil
}

// setupLogging installs the configured slog handler as the default logger.
func setupLogging(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.SlogLevel().String(), "format", cfg.LogFormat)
	return logger
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	db, err := storage.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Migrations applied", "driver", cfg.DBDriver)
	return nil
}
