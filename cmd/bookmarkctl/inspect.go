package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/internal/db"
)

var jsonOutput bool

var countCmd = &cobra.Command{
	Use:   "count <post-id>",
	Short: "Print how many users bookmarked a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID, err := bookmark.ParsePostID(args[0], true)
		if err != nil {
			return fmt.Errorf("%w: %q", err, args[0])
		}

		_, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		count, err := db.NewBookmarkRepository(db.NewRepository(database.DB)).CountForPost(cmd.Context(), postID)
		if err != nil {
			return fmt.Errorf("count bookmarks: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), count)
		return nil
	},
}

type listedBookmark struct {
	PostID int64  `json:"post_id"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List the posts a user has bookmarked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || userID <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		_, database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		repo := db.NewRepository(database.DB)
		ids, err := db.NewBookmarkRepository(repo).ListForUser(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("list bookmarks: %w", err)
		}

		posts := db.NewPostRepository(repo)
		out := make([]listedBookmark, 0, len(ids))
		for _, id := range ids {
			entry := listedBookmark{PostID: id}
			// The content table belongs to the host and may be absent
			if p, err := posts.GetByID(cmd.Context(), id); err == nil && p != nil {
				entry.Title = p.Title
				entry.Status = p.Status
			}
			out = append(out, entry)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		for _, b := range out {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", b.PostID, b.Status, b.Title)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}
