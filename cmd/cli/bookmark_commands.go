package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/freesound-sampler-go/api/handlers"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

var bookmarkCmd = &cobra.Command{
	Use:     "bookmark",
	Aliases: []string{"bm"},
	Short:   "Keep sounds across searches",
}

var bookmarkAddCmd = &cobra.Command{
	Use:   "add [freesound-id...]",
	Short: "Bookmark sounds from the current batch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var snap domain.BatchSnapshot
		if err := call(http.MethodGet, "/api/v1/batches/current", nil, &snap); err != nil {
			return err
		}
		byID := make(map[string]domain.SoundDescriptor, len(snap.Tasks))
		for _, t := range snap.Tasks {
			byID[t.Descriptor.ID] = t.Descriptor
		}

		for _, id := range args {
			sound, ok := byID[id]
			if !ok {
				return fmt.Errorf("sound %s is not in the current batch", id)
			}
			var bookmark domain.Bookmark
			req := handlers.AddBookmarkRequest{SoundDescriptor: sound, Query: snap.Query}
			if err := call(http.MethodPost, "/api/v1/bookmarks", req, &bookmark, http.StatusCreated); err != nil {
				return err
			}
			fmt.Printf("Bookmarked %s (%s) as %s\n", sound.ID, truncate(sound.Name, 40), shortID(bookmark.ID))
		}
		return nil
	},
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var bookmarks []domain.Bookmark
		if err := call(http.MethodGet, "/api/v1/bookmarks", nil, &bookmarks); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFREESOUND\tNAME\tAUTHOR\tQUERY")
		for _, b := range bookmarks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				b.ID, b.FreesoundID, truncate(b.Name, 32), truncate(b.Author, 20), b.Query)
		}
		return w.Flush()
	},
}

var bookmarkRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := call(http.MethodDelete, "/api/v1/bookmarks/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Println("Bookmark removed")
		return nil
	},
}

var bookmarkLoadCmd = &cobra.Command{
	Use:   "load [id...]",
	Short: "Download bookmarks as a new batch (all when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var snap domain.BatchSnapshot
		req := handlers.LoadBookmarksRequest{IDs: args}
		if err := call(http.MethodPost, "/api/v1/bookmarks/load", req, &snap, http.StatusAccepted); err != nil {
			return err
		}
		fmt.Printf("Batch %s started with %d bookmarked sounds\n", shortID(snap.ID), len(snap.Tasks))
		return nil
	},
}

func init() {
	bookmarkCmd.AddCommand(bookmarkAddCmd)
	bookmarkCmd.AddCommand(bookmarkListCmd)
	bookmarkCmd.AddCommand(bookmarkRemoveCmd)
	bookmarkCmd.AddCommand(bookmarkLoadCmd)
}
