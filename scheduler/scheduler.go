// Package scheduler drives periodic market-data collection cycles.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"marketpulse/models"
	"marketpulse/services/archive"
)

const defaultIntervalMinutes = 15

// Collector is the collection pipeline the scheduler drives each cycle.
type Collector interface {
	Collect(ctx context.Context) (*models.MarketSnapshot, error)
	Persist(ctx context.Context, snap *models.MarketSnapshot) (uint, error)
}

// Scheduler runs one collection cycle immediately at startup, then on
// every clock boundary of the configured interval. Cycles never overlap:
// if one is still running when the next fires, the new one is skipped.
type Scheduler struct {
	collector Collector
	archive   *archive.SnapshotArchive
	interval  int
	cron      *gocron.Scheduler

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler collecting every intervalMinutes. Intervals
// that do not divide evenly into an hour fall back to the default.
func New(collector Collector, archive *archive.SnapshotArchive, intervalMinutes int) *Scheduler {
	return &Scheduler{
		collector: collector,
		archive:   archive,
		interval:  normalizeInterval(intervalMinutes),
	}
}

// Start launches the immediate first cycle and registers the recurring
// job. It returns without waiting for the first cycle to finish.
func (s *Scheduler) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.cron = gocron.NewScheduler(time.UTC)
	if _, err := s.cron.Cron(cronExpr(s.interval)).Do(s.runCycle); err != nil {
		return fmt.Errorf("register collection job: %w", err)
	}
	s.cron.StartAsync()

	go s.runCycle()

	log.Printf("Scheduler started: collecting every %d minutes", s.interval)
	return nil
}

// Stop cancels any in-flight cycle and halts the recurring job.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runCycle() {
	if !s.mu.TryLock() {
		log.Println("Warning: previous collection cycle still running, skipping this one")
		return
	}
	defer s.mu.Unlock()

	ctx := s.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}

	started := time.Now()
	snap, err := s.collector.Collect(ctx)
	if err != nil {
		log.Printf("Collection cycle failed: %v", err)
		return
	}

	id, err := s.collector.Persist(ctx, snap)
	if err != nil {
		log.Printf("Failed to persist snapshot: %v", err)
		return
	}

	if s.archive.Enabled() {
		if err := s.archive.ArchiveSnapshot(ctx, snap); err != nil {
			log.Printf("Warning: failed to archive snapshot %d: %v", id, err)
		}
	}

	log.Printf("Collection cycle complete: snapshot %d, status %s, %d stocks, took %s",
		id, snap.MarketStatus, snap.TotalStocks, time.Since(started).Round(time.Millisecond))
}

// cronExpr builds the minute-boundary cron expression for the interval,
// so cycles land at :00, :15, :30, :45 rather than drifting from start
// time.
func cronExpr(intervalMinutes int) string {
	if intervalMinutes == 60 {
		return "0 * * * *"
	}
	return fmt.Sprintf("*/%d * * * *", intervalMinutes)
}

func normalizeInterval(minutes int) int {
	if minutes < 1 || minutes > 60 || 60%minutes != 0 {
		return defaultIntervalMinutes
	}
	return minutes
}
