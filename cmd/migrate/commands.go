package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/finadmin/backend/internal/infrastructure/migration"
	"github.com/finadmin/backend/migrations"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := openMigrator()
		if err != nil {
			return err
		}
		defer cleanup()
		return m.Up()
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			return fmt.Errorf("down drops every AP/AR table; rerun with --confirm")
		}
		m, cleanup, err := openMigrator()
		if err != nil {
			return err
		}
		defer cleanup()
		return m.Down()
	},
}

var stepCmd = &cobra.Command{
	Use:   "step <n>",
	Short: "Apply n migrations (negative rolls back)",
	Example: `  # Roll back the last migration
  migrate step -- -1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", args[0], err)
		}
		m, cleanup, err := openMigrator()
		if err != nil {
			return err
		}
		defer cleanup()
		return m.Steps(n)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := openMigrator()
		if err != nil {
			return err
		}
		defer cleanup()

		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close()

		status, err := m.Status(src)
		if err != nil {
			return err
		}
		log.Info("Schema version",
			zap.Uint("version", status.Version),
			zap.Uint("latest", status.Latest),
			zap.Bool("dirty", status.Dirty),
			zap.Bool("pending", status.Pending()),
		)
		return nil
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the schema version without running migrations",
	Long:  "force clears a dirty state left by a failed migration. Use with caution.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		m, cleanup, err := openMigrator()
		if err != nil {
			return err
		}
		defer cleanup()
		return m.Force(version)
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Create an empty up/down migration pair",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrationsPath
		if dir == "" {
			dir = "migrations"
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		f, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.Uint("version", f.Version),
			zap.String("up_file", f.UpPath),
			zap.String("down_file", f.DownPath),
		)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List migration files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrationsPath
		if dir == "" {
			dir = "migrations"
		}
		files, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f.BaseName())
		}
		return nil
	},
}

// openSource reads migrations from --path or the embedded set
func openSource() (source.Driver, error) {
	if migrationsPath != "" {
		return iofs.New(os.DirFS(migrationsPath), ".")
	}
	return iofs.New(migrations.FS, ".")
}

func init() {
	downCmd.Flags().Bool("confirm", false, "Confirm rolling back every migration")

	rootCmd.AddCommand(upCmd, downCmd, stepCmd, versionCmd, forceCmd, createCmd, listCmd)
}
