package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var domainsLimit int

var domainsCmd = &cobra.Command{
	Use:   "domains [domain]",
	Short: "List sender domains, or emails from one domain",
	Long: `Without arguments, ranks sender domains by message count.
With a domain argument, lists that domain's emails newest first:

  mailstash domains
  mailstash domains example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		if len(args) == 1 {
			emails, err := db.EmailsByDomain(args[0], domainsLimit)
			if err != nil {
				return err
			}
			if len(emails) == 0 {
				fmt.Printf("No emails from %s\n", args[0])
				return nil
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Date", "From", "Subject"})
			table.SetBorder(false)
			for _, e := range emails {
				table.Append([]string{e.ID, formatTimestamp(e.Timestamp), e.FromEmail, truncate(e.Subject, 60)})
			}
			table.Render()
			return nil
		}

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Domain", "Emails"})
		table.SetBorder(false)
		for _, dc := range stats.TopDomains {
			table.Append([]string{dc.Domain, strconv.FormatInt(dc.Count, 10)})
		}
		table.Render()
		return nil
	},
}

func init() {
	domainsCmd.Flags().IntVarP(&domainsLimit, "limit", "n", 100, "maximum results")
	rootCmd.AddCommand(domainsCmd)
}
