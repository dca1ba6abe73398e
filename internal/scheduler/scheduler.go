// Package scheduler provides cron-based scheduling for automated email sync.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mailstash/mailstash/internal/config"
	"github.com/robfig/cron/v3"
)

// SyncFunc is invoked when a scheduled sync should run. It receives the
// account entry whose query should be synced.
type SyncFunc func(ctx context.Context, account config.AccountSchedule) error

// AccountStatus reports the sync state of one scheduled account.
type AccountStatus struct {
	Email     string    `json:"email"`
	Query     string    `json:"query,omitempty"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler manages cron-driven sync jobs, one per account. Overlapping
// runs for the same account are suppressed.
type Scheduler struct {
	cron     *cron.Cron
	syncFunc SyncFunc
	logger   *slog.Logger

	mu       sync.RWMutex
	jobs     map[string]cron.EntryID
	accounts map[string]config.AccountSchedule
	running  map[string]bool
	lastRun  map[string]time.Time
	lastErr  map[string]error

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// New creates a Scheduler with the given sync callback.
func New(syncFunc SyncFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		syncFunc: syncFunc,
		logger:   slog.Default(),
		jobs:     make(map[string]cron.EntryID),
		accounts: make(map[string]config.AccountSchedule),
		running:  make(map[string]bool),
		lastRun:  make(map[string]time.Time),
		lastErr:  make(map[string]error),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// AddAccount schedules sync for an account. An existing schedule for the
// same email is replaced. Returns an error for an invalid cron expression.
func (s *Scheduler) AddAccount(account config.AccountSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := account.Email
	if entryID, exists := s.jobs[email]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, email)
		delete(s.accounts, email)
	}

	entryID, err := s.cron.AddFunc(account.Schedule, func() {
		s.mu.Lock()
		if s.stopped || s.running[email] {
			s.mu.Unlock()
			return
		}
		s.running[email] = true
		s.wg.Add(1)
		s.mu.Unlock()
		s.runSync(account)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", account.Schedule, err)
	}

	s.jobs[email] = entryID
	s.accounts[email] = account
	s.logger.Info("scheduled sync",
		"email", email,
		"query", account.Query,
		"schedule", account.Schedule,
		"next_run", s.cron.Entry(entryID).Next)
	return nil
}

// AddAccountsFromConfig schedules every enabled account from the config.
// Returns the number scheduled and any per-account errors.
func (s *Scheduler) AddAccountsFromConfig(cfg *config.Config) (int, []error) {
	var errs []error
	scheduled := 0
	for _, acc := range cfg.Accounts {
		if !acc.Enabled {
			continue
		}
		if err := s.AddAccount(acc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", acc.Email, err))
		} else {
			scheduled++
		}
	}
	return scheduled, errs
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// IsRunning reports whether the scheduler has started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop gracefully stops the scheduler, cancels running sync jobs, and waits
// for them to finish. The returned context is done when all work completes.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		cancel()
	}()
	return ctx
}

// IsScheduled reports whether the account has been added to the scheduler.
func (s *Scheduler) IsScheduled(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.jobs[email]
	return exists
}

// TriggerSync manually starts a sync for an account outside its schedule.
func (s *Scheduler) TriggerSync(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}
	account, exists := s.accounts[email]
	if !exists {
		return fmt.Errorf("account %s is not scheduled", email)
	}
	if s.running[email] {
		return fmt.Errorf("sync already running for %s", email)
	}

	s.running[email] = true
	s.wg.Add(1)
	go s.runSync(account)
	return nil
}

// Status returns the current state of all scheduled accounts.
func (s *Scheduler) Status() []AccountStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var statuses []AccountStatus
	for email, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		status := AccountStatus{
			Email:    email,
			Query:    s.accounts[email].Query,
			Running:  s.running[email],
			LastRun:  s.lastRun[email],
			NextRun:  entry.Next,
			Schedule: s.accounts[email].Schedule,
		}
		if err := s.lastErr[email]; err != nil {
			status.LastError = err.Error()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// runSync executes one sync. The caller must have called wg.Add(1) and set
// running[email] before invoking it.
func (s *Scheduler) runSync(account config.AccountSchedule) {
	email := account.Email
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running[email] = false
		s.mu.Unlock()
	}()

	s.logger.Info("starting scheduled sync", "email", email, "query", account.Query)
	start := time.Now()

	err := s.syncFunc(s.ctx, account)

	s.mu.Lock()
	if err != nil {
		s.lastErr[email] = err
		s.logger.Error("scheduled sync failed",
			"email", email,
			"duration", time.Since(start),
			"error", err)
	} else {
		s.lastRun[email] = time.Now()
		s.lastErr[email] = nil
		s.logger.Info("scheduled sync completed",
			"email", email,
			"duration", time.Since(start))
	}
	s.mu.Unlock()
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
