/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/db"
)

var migrateDownSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *db.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			return printVersion(cmd, m)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *db.Migrator) error {
			if err := m.Down(migrateDownSteps); err != nil {
				return err
			}
			return printVersion(cmd, m)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *db.Migrator) error {
			return printVersion(cmd, m)
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 0, "number of migrations to roll back (0 means all)")
}

func withMigrator(fn func(m *db.Migrator) error) error {
	cfg, _ := loadConfig()

	migrator, err := db.NewMigrator(db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close()
	}()
	return fn(migrator)
}

func printVersion(cmd *cobra.Command, m *db.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
