package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mailstash/mailstash/internal/api"
	"github.com/mailstash/mailstash/internal/config"
	"github.com/mailstash/mailstash/internal/planner"
	"github.com/mailstash/mailstash/internal/scheduler"
	"github.com/mailstash/mailstash/internal/syncer"
	"github.com/spf13/cobra"
)

var serveNoSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve archive search and stats over HTTP.

Accounts with a schedule in config.toml are synced automatically via
cron while the server runs, unless --no-schedule is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openArchive()
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()

		var sched *scheduler.Scheduler
		if !serveNoSchedule && len(cfg.Accounts) > 0 {
			sched = scheduler.New(func(ctx context.Context, account config.AccountSchedule) error {
				client, err := newGmailClient(ctx)
				if err != nil {
					return err
				}
				flat, err := openCache(account.Query)
				if err != nil {
					return err
				}
				s := syncer.New(client, flat, db, &syncer.Options{
					Query: account.Query,
					Mode:  planner.ModeSync,
				}).WithLogger(logger)
				_, err = s.Run(ctx)
				return err
			}).WithLogger(logger)

			scheduled, errs := sched.AddAccountsFromConfig(cfg)
			for _, err := range errs {
				logger.Warn("skipping account", "error", err)
			}
			if scheduled > 0 {
				sched.Start()
				defer func() {
					stopCtx := sched.Stop()
					<-stopCtx.Done()
				}()
			}
		}

		var schedIface api.SyncScheduler
		if sched != nil {
			schedIface = sched
		}
		server := api.NewServer(cfg, db, schedIface, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "disable scheduled syncs")
	rootCmd.AddCommand(serveCmd)
}
