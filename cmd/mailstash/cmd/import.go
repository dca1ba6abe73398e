package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the flat cache into the archive",
	Long: `Import every message in the flat cache into the SQLite archive.

Already-imported messages are replaced wholesale, so re-running import is
safe. Messages whose cache files cannot be read are skipped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if len(result.Records) == 0 {
			fmt.Println("Nothing to import.")
			return nil
		}

		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		newCount, err := db.UpsertEmails(result.Records)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}

		fmt.Printf("Imported %d messages (%d new", len(result.Records), newCount)
		if len(result.Skipped) > 0 {
			fmt.Printf(", %d skipped", len(result.Skipped))
		}
		fmt.Println(")")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
