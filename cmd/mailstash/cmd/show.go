package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showFromCache bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one message",
	Long: `Show a single message by id.

Reads from the SQLite archive by default; --cache reads the flat file
cache instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		if showFromCache {
			flat, err := openCache("")
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			rec, err := flat.Load(id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no cached message with id %s", id)
			}
			fmt.Printf("ID:      %s\n", rec.ID)
			fmt.Printf("Thread:  %s\n", rec.ThreadID)
			fmt.Printf("Date:    %s\n", formatTimestamp(rec.Timestamp))
			fmt.Printf("From:    %s\n", rec.From)
			fmt.Printf("To:      %s\n", strings.Join(rec.To, ", "))
			if len(rec.Cc) > 0 {
				fmt.Printf("Cc:      %s\n", strings.Join(rec.Cc, ", "))
			}
			fmt.Printf("Subject: %s\n", rec.Subject)
			if len(rec.Attachments) > 0 {
				fmt.Printf("Attachments:\n")
				for _, att := range rec.Attachments {
					fmt.Printf("  %s (%s, %d bytes)\n", att.Filename, att.MimeType, att.Size)
				}
			}
			fmt.Printf("\n%s\n", rec.BodyPlain)
			return nil
		}

		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		email, err := db.GetEmail(id)
		if err != nil {
			return err
		}
		if email == nil {
			return fmt.Errorf("no archived message with id %s", id)
		}

		fmt.Printf("ID:      %s\n", email.ID)
		fmt.Printf("Thread:  %s\n", email.ThreadID)
		fmt.Printf("Date:    %s\n", formatTimestamp(email.Timestamp))
		if email.FromName != "" {
			fmt.Printf("From:    %s <%s>\n", email.FromName, email.FromEmail)
		} else {
			fmt.Printf("From:    %s\n", email.FromEmail)
		}
		fmt.Printf("To:      %s\n", strings.Join(email.To, ", "))
		if len(email.Cc) > 0 {
			fmt.Printf("Cc:      %s\n", strings.Join(email.Cc, ", "))
		}
		fmt.Printf("Subject: %s\n", email.Subject)
		if len(email.LabelIDs) > 0 {
			fmt.Printf("Labels:  %s\n", strings.Join(email.LabelIDs, ", "))
		}
		if email.HasAttachments {
			atts, err := db.Attachments(email.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Attachments:\n")
			for _, att := range atts {
				fmt.Printf("  %s (%s, %d bytes)\n", att.Filename, att.MimeType, att.Size)
			}
		}
		fmt.Printf("\n%s\n", email.Body)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showFromCache, "cache", false, "read from the flat cache instead of the archive")
	rootCmd.AddCommand(showCmd)
}
