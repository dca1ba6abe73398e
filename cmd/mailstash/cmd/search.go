package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search the archive",
	Long: `Search the archive using SQLite FTS5 syntax.

The query is passed to the full-text engine verbatim, so boolean and
phrase syntax work:

  mailstash search "invoice"
  mailstash search '"quarterly report" AND budget'
  mailstash search 'subject:renewal'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		emails, err := db.Search(args[0], searchLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if len(emails) == 0 {
			fmt.Println("No matches.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Date", "From", "Subject"})
		table.SetBorder(false)
		for _, e := range emails {
			table.Append([]string{
				e.ID,
				formatTimestamp(e.Timestamp),
				e.FromEmail,
				truncate(e.Subject, 60),
			})
		}
		table.Render()
		fmt.Printf("%d matches\n", len(emails))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 100, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
