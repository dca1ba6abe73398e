// Package syncer reconciles the local caches with the remote message store.
//
// A sync run lists the authoritative remote ids for a query, plans the fetch
// set against the flat cache's index, fetches missing messages one id at a
// time, stores them in the flat cache, and optionally imports them into the
// SQLite archive. Fetching is sequential: a failed id is logged and counted,
// and everything stored before the failure stays stored.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailstash/mailstash/internal/flatstore"
	"github.com/mailstash/mailstash/internal/gmail"
	"github.com/mailstash/mailstash/internal/model"
	"github.com/mailstash/mailstash/internal/planner"
	"github.com/mailstash/mailstash/internal/store"
)

// Options configures a sync run.
type Options struct {
	// Query is the remote search query selecting which messages to sync.
	Query string

	// Mode selects incremental (planner.ModeSync) or full refetch
	// (planner.ModeForce) behavior.
	Mode planner.Mode

	// MaxResults caps how many remote ids are listed (0 = no limit).
	MaxResults int
}

// DefaultOptions returns the incremental-sync defaults.
func DefaultOptions() *Options {
	return &Options{Mode: planner.ModeSync}
}

// Summary reports what a sync run did.
type Summary struct {
	Found    int           // remote ids matching the query
	Cached   int           // ids already present locally
	Fetched  int           // messages fetched from the remote service
	Stored   int           // ids newly added to the flat cache
	Imported int           // ids newly added to the archive database
	Errors   int           // per-message fetch failures
	Duration time.Duration
}

// Syncer drives sync runs against one flat cache and optional archive.
type Syncer struct {
	client gmail.API
	flat   *flatstore.Store
	db     *store.Store // optional; nil skips archive import
	logger *slog.Logger
	opts   *Options
}

// New creates a Syncer. db may be nil when only the flat cache is wanted.
func New(client gmail.API, flat *flatstore.Store, db *store.Store, opts *Options) *Syncer {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Mode == "" {
		opts.Mode = planner.ModeSync
	}
	return &Syncer{
		client: client,
		flat:   flat,
		db:     db,
		logger: slog.Default(),
		opts:   opts,
	}
}

// WithLogger sets the logger.
func (s *Syncer) WithLogger(logger *slog.Logger) *Syncer {
	s.logger = logger
	return s
}

// Run performs one sync pass and returns its summary. Remote fetch failures
// for individual messages do not abort the run; listing failures and storage
// failures do.
func (s *Syncer) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	remoteIDs, err := s.client.ListMessageIDs(ctx, s.opts.Query, s.opts.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("list remote ids: %w", err)
	}
	summary.Found = len(remoteIDs)

	fetchSet := planner.Plan(remoteIDs, s.flat.KnownIDs(), s.opts.Mode)
	toFetch := planner.Order(remoteIDs, fetchSet)
	summary.Cached = summary.Found - len(toFetch)

	s.logger.Info("sync planned",
		"query", s.opts.Query,
		"mode", string(s.opts.Mode),
		"found", summary.Found,
		"cached", summary.Cached,
		"to_fetch", len(toFetch))

	var fetched []*model.MessageRecord
	for _, id := range toFetch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.client.GetMessage(ctx, id)
		if err != nil {
			s.logger.Warn("fetch failed", "id", id, "error", err)
			summary.Errors++
			continue
		}
		fetched = append(fetched, rec)
	}
	summary.Fetched = len(fetched)

	if len(fetched) > 0 {
		stored, err := s.flat.StoreBatch(fetched)
		if err != nil {
			return nil, fmt.Errorf("store batch: %w", err)
		}
		summary.Stored = stored

		if s.db != nil {
			imported, err := s.db.UpsertEmails(fetched)
			if err != nil {
				return nil, fmt.Errorf("import batch: %w", err)
			}
			summary.Imported = imported
		}
	}

	summary.Duration = time.Since(start)
	s.logger.Info("sync complete",
		"fetched", summary.Fetched,
		"stored", summary.Stored,
		"imported", summary.Imported,
		"errors", summary.Errors,
		"duration", summary.Duration)
	return summary, nil
}
