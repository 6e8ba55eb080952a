package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steemit/bookmarks/internal/db"
	"github.com/steemit/bookmarks/pkg/config"
	"github.com/steemit/bookmarks/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:           "bookmarkctl",
	Short:         "Administer the post bookmarks service",
	Long:          "Maintenance commands for the bookmarks table: schema migration, list page install and read-only inspection.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, installPageCmd, countCmd, listCmd)
}

// openDatabase loads configuration and connects to the configured store
func openDatabase() (*config.Config, *db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, database, nil
}
