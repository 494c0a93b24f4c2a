package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/finadmin/backend/internal/infrastructure/config"
	"github.com/finadmin/backend/internal/infrastructure/logger"
	"github.com/finadmin/backend/internal/infrastructure/migration"
	"github.com/finadmin/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrationsPath string
	logLevel       string
	log            = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the AP/AR database schema",
	Long: `migrate applies the versioned PostgreSQL schema for fx rates, ledger entries,
settlement records and contracts.

Without --path the migrations embedded in the binary are used.
Connection settings come from config.toml and FIN_DATABASE_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(&logger.Config{
			Level:      logLevel,
			Format:     "console",
			Output:     "stdout",
			TimeFormat: "2006-01-02 15:04:05",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "Migrations directory (default: embedded migrations)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// openMigrator connects to the configured database and returns a migrator with a cleanup func
func openMigrator() (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var m *migration.Migrator
	if migrationsPath != "" {
		log.Info("Using migrations directory", zap.String("path", migrationsPath))
		m, err = migration.New(db, migrationsPath, log)
	} else {
		m, err = migration.NewFromFS(db, migrations.FS, log)
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}
	return m, cleanup, nil
}

func main() {
	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
