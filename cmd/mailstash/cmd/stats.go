package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		flat, err := openCache("")
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		fs := flat.Stats()

		fmt.Printf("Cache: %s\n", fs.Location)
		fmt.Printf("  Messages:  %d\n", fs.TotalMessages)
		lastSync := fs.LastSync
		if lastSync == "" {
			lastSync = "never"
		}
		fmt.Printf("  Last sync: %s\n", lastSync)

		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		fmt.Printf("Archive: %s\n", cfg.Data.DatabasePath)
		fmt.Printf("  Emails:         %d\n", stats.TotalEmails)
		fmt.Printf("  Threads:        %d\n", stats.TotalThreads)
		fmt.Printf("  Unique domains: %d\n", stats.UniqueDomains)

		if len(stats.TopDomains) > 0 {
			fmt.Println("  Top domains:")
			for _, dc := range stats.TopDomains {
				fmt.Printf("    %-30s %d\n", dc.Domain, dc.Count)
			}
		}
		if len(stats.TopSenders) > 0 {
			fmt.Println("  Top senders:")
			for _, sc := range stats.TopSenders {
				fmt.Printf("    %-40s %d\n", sc.Email, sc.Count)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
