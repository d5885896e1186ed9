package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yourusername/freesound-sampler-go/api/handlers"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/tui"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search Freesound without downloading",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var result struct {
			Sounds []domain.SoundDescriptor `json:"sounds"`
		}
		if err := call(http.MethodGet, "/api/v1/search?q="+url.QueryEscape(joinArgs(args)), nil, &result); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tAUTHOR\tLICENSE")
		for _, s := range result.Sounds {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				s.ID,
				truncate(s.Name, 40),
				truncate(s.Author, 20),
				domain.LicenseShortName(s.License))
		}
		return w.Flush()
	},
}

var startCmd = &cobra.Command{
	Use:   "start [query]",
	Short: "Search and download a new batch, replacing the current one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		watch, _ := cmd.Flags().GetBool("watch")

		var stream *tui.Stream
		if watch {
			// connect first so BatchStarted is not missed
			var err error
			if stream, err = dialStream(); err != nil {
				return err
			}
			defer stream.Close()
		}

		var snap domain.BatchSnapshot
		req := handlers.StartBatchRequest{Query: joinArgs(args)}
		if err := call(http.MethodPost, "/api/v1/batches", req, &snap, http.StatusAccepted); err != nil {
			return err
		}

		if stream != nil {
			return runWatch(stream, true, snap.ID)
		}
		fmt.Printf("Batch started!\n")
		fmt.Printf("ID:        %s\n", snap.ID)
		fmt.Printf("Sounds:    %d\n", len(snap.Tasks))
		fmt.Printf("Directory: %s\n", snap.Directory)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current batch and its tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var snap domain.BatchSnapshot
		if err := call(http.MethodGet, "/api/v1/batches/current", nil, &snap); err != nil {
			return err
		}

		p := snap.Progress
		fmt.Printf("Batch %s (%s)\n", shortID(snap.ID), snap.State)
		if snap.Query != "" {
			fmt.Printf("  Query:     %s\n", snap.Query)
		}
		fmt.Printf("  Directory: %s\n", snap.Directory)
		fmt.Printf("  Progress:  %.0f%% (%d done, %d failed, %d total)\n\n",
			p.OverallFraction*100, p.CompletedCount, p.FailedCount, p.TotalCount)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tID\tSTATE\tATTEMPTS\tBYTES\tERROR")
		for _, t := range snap.Tasks {
			bytes := strconv.FormatInt(t.BytesReceived, 10)
			if t.TotalBytes != domain.UnknownSize {
				bytes += "/" + strconv.FormatInt(t.TotalBytes, 10)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
				t.Index, t.Descriptor.ID, t.State, t.Attempts, bytes, truncate(t.ErrorDetail, 40))
		}
		return w.Flush()
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the current batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var snap domain.BatchSnapshot
		if err := call(http.MethodPost, "/api/v1/batches/current/cancel", nil, &snap); err != nil {
			return err
		}
		if snap.State != domain.BatchStateCancelled {
			fmt.Printf("Batch %s already %s\n", shortID(snap.ID), snap.State)
			return nil
		}
		fmt.Printf("Batch %s cancelled (%d of %d downloaded)\n",
			shortID(snap.ID), snap.Progress.CompletedCount, snap.Progress.TotalCount)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow batch progress live",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		exit, _ := cmd.Flags().GetBool("exit")

		stream, err := dialStream()
		if err != nil {
			return err
		}
		defer stream.Close()
		return runWatch(stream, exit, "")
	},
}

var padsCmd = &cobra.Command{
	Use:   "pads",
	Short: "Show the sampler pads built from the last batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var layout domain.PadLayout
		if err := call(http.MethodGet, "/api/v1/pads", nil, &layout); err != nil {
			return err
		}
		if len(layout.Pads) == 0 {
			fmt.Println("No pads loaded")
			return nil
		}

		fmt.Printf("Batch %s (%s)\n", shortID(layout.BatchID), layout.Source)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PAD\tNOTES\tNAME\tAUTHOR\tLICENSE")
		for _, p := range layout.Pads {
			notes := strconv.Itoa(p.LowNote)
			if p.HighNote != p.LowNote {
				notes += "-" + strconv.Itoa(p.HighNote)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				p.Index+1, notes, truncate(p.Name, 32), truncate(p.Author, 20), p.LicenseShort)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		limit, _ := cmd.Flags().GetInt("limit")

		var records []domain.BatchRecord
		if err := call(http.MethodGet, "/api/v1/batches?limit="+strconv.Itoa(limit), nil, &records); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUERY\tSTATE\tDONE\tFAILED\tSTARTED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
				shortID(r.ID),
				truncate(r.Query, 24),
				r.State,
				r.CompletedCount, r.TotalCount,
				r.FailedCount,
				r.StartedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var stats domain.BatchStats
		if err := call(http.MethodGet, "/api/v1/batches/stats", nil, &stats); err != nil {
			return err
		}

		fmt.Println("Batch Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Active:     %d\n", stats.Active)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		fmt.Printf("  Sounds:     %d downloaded, %d failed\n", stats.SoundsDownloaded, stats.SoundsFailed)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [batch-id]",
	Short: "View the lifecycle log of a batch (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		jsonOutput, _ := cmd.Flags().GetBool("json")
		date, _ := cmd.Flags().GetString("date")

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			var snap domain.BatchSnapshot
			if err := call(http.MethodGet, "/api/v1/batches/current", nil, &snap); err != nil {
				return err
			}
			id = snap.ID
		}

		path := "/api/v1/batches/" + url.PathEscape(id) + "/log"
		if date != "" {
			path += "?date=" + url.QueryEscape(date)
		}
		var result struct {
			Entries []logger.LogEntry `json:"entries"`
		}
		if err := call(http.MethodGet, path, nil, &result); err != nil {
			return err
		}

		if jsonOutput {
			pretty, _ := json.MarshalIndent(result.Entries, "", "  ")
			fmt.Println(string(pretty))
			return nil
		}
		for _, e := range result.Entries {
			delete(e.Fields, "batch_id")
			fields, _ := json.Marshal(e.Fields)
			fmt.Printf("%s  %-16s %s\n", e.Timestamp, e.Message, fields)
		}
		return nil
	},
}

func init() {
	startCmd.Flags().BoolP("watch", "w", false, "Follow progress until the batch finishes")
	watchCmd.Flags().Bool("exit", false, "Exit when the current batch finishes")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of batches to show")
	logsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	logsCmd.Flags().String("date", "", "Log date (YYYY-MM-DD), default today")
}

func dialStream() (*tui.Stream, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return tui.Dial(ctx, serverURL)
}

func runWatch(stream *tui.Stream, exitOnDone bool, follow string) error {
	model := tui.NewModel(stream, tui.Options{
		ExitOnDone: exitOnDone,
		Follow:     follow,
		Cancel: func() error {
			return call(http.MethodPost, "/api/v1/batches/current/cancel", nil, nil)
		},
	})

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil && !m.Settled() {
		return fmt.Errorf("event stream closed: %w", m.Err())
	}
	return nil
}
