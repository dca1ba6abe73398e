// Package cmd implements the mailstash command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mailstash/mailstash/internal/config"
	"github.com/mailstash/mailstash/internal/flatstore"
	"github.com/mailstash/mailstash/internal/gmail"
	"github.com/mailstash/mailstash/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailstash",
	Short: "Local-first Gmail cache with search",
	Long: `mailstash caches Gmail messages locally and makes them searchable.

Messages are fetched incrementally into a flat file cache and imported
into a SQLite archive with full-text search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.HomeDir, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.mailstash/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context, enabling
// graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openArchive opens the SQLite archive and applies the schema.
func openArchive() (*store.Store, error) {
	st, err := store.Open(cfg.Data.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// openCache opens the flat message cache, optionally under a per-query
// subdirectory.
func openCache(subdir string) (*flatstore.Store, error) {
	dir := cfg.Data.CacheDir
	if subdir != "" {
		dir = filepath.Join(dir, sanitizeDirName(subdir))
	}
	return flatstore.Open(dir)
}

// newGmailClient builds the Gmail client from the configured OAuth credential.
func newGmailClient(ctx context.Context) (*gmail.Client, error) {
	oc := cfg.OAuth
	if oc.ClientID == "" || oc.ClientSecret == "" || oc.RefreshToken == "" {
		return nil, fmt.Errorf(`Gmail OAuth is not configured. Add to %s:
  [oauth]
  client_id = "..."
  client_secret = "..."
  refresh_token = "..."`, cfg.ConfigFilePath())
	}
	qps := cfg.Sync.RateLimitQPS
	if qps <= 0 {
		qps = 5
	}
	return gmail.NewClient(ctx, oc.ClientID, oc.ClientSecret, oc.RefreshToken,
		gmail.WithLogger(logger), gmail.WithQPS(qps))
}

// sanitizeDirName maps a query string to a filesystem-safe directory name.
func sanitizeDirName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '@', r == '.', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
