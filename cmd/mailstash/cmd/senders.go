package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var sendersLimit int

var sendersCmd = &cobra.Command{
	Use:   "senders [email]",
	Short: "List top senders, or emails from one sender",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		if len(args) == 1 {
			emails, err := db.EmailsBySender(args[0], sendersLimit)
			if err != nil {
				return err
			}
			if len(emails) == 0 {
				fmt.Printf("No emails from %s\n", args[0])
				return nil
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Date", "Subject"})
			table.SetBorder(false)
			for _, e := range emails {
				table.Append([]string{e.ID, formatTimestamp(e.Timestamp), truncate(e.Subject, 70)})
			}
			table.Render()
			return nil
		}

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Sender", "Name", "Emails"})
		table.SetBorder(false)
		for _, sc := range stats.TopSenders {
			table.Append([]string{sc.Email, sc.Name, strconv.FormatInt(sc.Count, 10)})
		}
		table.Render()
		return nil
	},
}

func init() {
	sendersCmd.Flags().IntVarP(&sendersLimit, "limit", "n", 100, "maximum results")
	rootCmd.AddCommand(sendersCmd)
}
