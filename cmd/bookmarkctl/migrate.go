package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steemit/bookmarks/internal/db"
	"github.com/steemit/bookmarks/internal/models"
	"github.com/steemit/bookmarks/pkg/config"
)

const listPageTitle = "Bookmarks List"

var installPage bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the bookmarks table",
	Long:  "Collapse duplicate rows, then create the bookmarks table with its unique (user_id, post_id) index.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "bookmarks table is up to date")

		if installPage {
			return ensureListPage(cmd.Context(), cmd, cfg, database)
		}
		return nil
	},
}

var installPageCmd = &cobra.Command{
	Use:   "install-page",
	Short: "Create the page that shows the visitor's bookmarks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		return ensureListPage(cmd.Context(), cmd, cfg, database)
	},
}

func ensureListPage(ctx context.Context, cmd *cobra.Command, cfg *config.Config, database *db.DB) error {
	if !database.Migrator().HasTable(&models.Post{}) {
		table, _ := database.TableName(&models.Post{})
		return fmt.Errorf("host content table %s not found", table)
	}

	posts := db.NewPostRepository(db.NewRepository(database.DB))
	created, err := posts.EnsureListPage(ctx, cfg.Site.ListPageSlug, listPageTitle)
	if err != nil {
		return fmt.Errorf("install list page: %w", err)
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "created page %q\n", cfg.Site.ListPageSlug)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "page %q already exists\n", cfg.Site.ListPageSlug)
	}
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&installPage, "install-page", false, "also create the bookmark list page")
}
