package cmd

import (
	"fmt"
	"os"

	"github.com/mailstash/mailstash/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached messages",
	Long: `Export everything in the flat cache as CSV, JSON, or JSON Lines.

  mailstash export --format csv -o emails.csv
  mailstash export --format jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		flat, err := openCache("")
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}

		result, err := flat.LoadAll()
		if err != nil {
			return fmt.Errorf("load cache: %w", err)
		}
		for _, skipped := range result.Skipped {
			logger.Warn("skipping unreadable message", "id", skipped.ID, "error", skipped.Err)
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := export.Write(out, result.Records, format); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if exportOutput != "" {
			fmt.Printf("Exported %d messages to %s", len(result.Records), exportOutput)
			if len(result.Skipped) > 0 {
				fmt.Printf(" (%d skipped)", len(result.Skipped))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, json, or jsonl")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
