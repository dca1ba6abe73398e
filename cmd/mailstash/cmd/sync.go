package cmd

import (
	"fmt"
	"time"

	"github.com/mailstash/mailstash/internal/planner"
	"github.com/mailstash/mailstash/internal/syncer"
	"github.com/spf13/cobra"
)

var (
	syncQuery      string
	syncMax        int
	syncForce      bool
	syncSkipImport bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new messages into the local cache",
	Long: `Sync fetches messages matching a Gmail query into the local cache.

By default only messages missing from the cache are fetched. Use --force
to refetch everything the query matches. Fetched messages are also
imported into the SQLite archive unless --no-import is given.

Examples:
  mailstash sync -q "from:billing@example.com"
  mailstash sync -q "newer_than:7d" --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		query := syncQuery
		if query == "" {
			query = cfg.Sync.DefaultQuery
		}
		maxResults := syncMax
		if maxResults == 0 {
			maxResults = cfg.Sync.MaxResults
		}

		client, err := newGmailClient(ctx)
		if err != nil {
			return err
		}

		flat, err := openCache(query)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}

		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		opts := &syncer.Options{
			Query:      query,
			Mode:       planner.ModeSync,
			MaxResults: maxResults,
		}
		if syncForce {
			opts.Mode = planner.ModeForce
		}

		s := syncer.New(client, flat, db, opts)
		if syncSkipImport {
			s = syncer.New(client, flat, nil, opts)
		}

		summary, err := s.WithLogger(logger).Run(ctx)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		fmt.Printf("Found %d messages (%d cached). Fetched %d, stored %d, imported %d",
			summary.Found, summary.Cached, summary.Fetched, summary.Stored, summary.Imported)
		if summary.Errors > 0 {
			fmt.Printf(", %d errors", summary.Errors)
		}
		fmt.Printf(" in %s\n", summary.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncQuery, "query", "q", "", "Gmail search query")
	syncCmd.Flags().IntVarP(&syncMax, "max", "n", 0, "maximum number of messages to list (0 = all)")
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "refetch everything, ignoring the cache")
	syncCmd.Flags().BoolVar(&syncSkipImport, "no-import", false, "skip importing into the SQLite archive")
	rootCmd.AddCommand(syncCmd)
}
