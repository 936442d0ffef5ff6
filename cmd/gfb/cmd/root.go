package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/gfb/internal/core/api"
	"github.com/solatis/gfb/internal/core/config"
	"github.com/solatis/gfb/internal/core/db"
	"github.com/solatis/gfb/internal/logging"
	"github.com/solatis/gfb/internal/query"
	"github.com/spf13/cobra"
)

// Version of the gfb binary.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "gfb",
	Short: "Gmail filter builder",
	Long: `gfb compiles YAML filter documents into Gmail search queries that fit
Gmail's filter size limit, exports them as an importable XML feed and serves
the compiler over gRPC and HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Initialize(logLevel, logFormat, os.Stderr)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "filter registry URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	rootCmd.Version = Version
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the config file and applies the --db-url override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DB.URL = dbURL
	}
	return cfg, nil
}

// openRegistry opens and migrates-checks the filter registry. Returns a nil
// store when no database is configured and required is false.
func openRegistry(cfg *config.Config, required bool) (*sqlx.DB, *db.Store, error) {
	if cfg.DB.URL == "" {
		if required {
			return nil, nil, fmt.Errorf("--db-url or db.url required")
		}
		return nil, nil, nil
	}

	database, err := db.Open(cfg.DB.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations (run 'gfb migrate' first): %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'gfb migrate' first", s.ID)
		}
	}

	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, store, nil
}

// newService builds the compiler and service from cfg.
func newService(cfg *config.Config, store *db.Store) (*api.Service, error) {
	compiler, err := query.NewCompiler(query.Options{
		Budget:      cfg.Compiler.Budget,
		Fields:      cfg.Compiler.Fields,
		Concurrency: cfg.Compiler.Concurrency,
		Logger:      slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}
	return api.NewService(compiler, store, slog.Default(), cfg.Server.MaxDocumentKB*1024)
}
