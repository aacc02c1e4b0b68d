package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"marketpulse/models"
	"marketpulse/services/archive"
)

type fakeCollector struct {
	collects int32
	persists int32
	block    chan struct{}
}

func (f *fakeCollector) Collect(ctx context.Context) (*models.MarketSnapshot, error) {
	atomic.AddInt32(&f.collects, 1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &models.MarketSnapshot{MarketStatus: models.MarketStatusOpen}, nil
}

func (f *fakeCollector) Persist(ctx context.Context, snap *models.MarketSnapshot) (uint, error) {
	atomic.AddInt32(&f.persists, 1)
	return uint(atomic.LoadInt32(&f.persists)), nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStartRunsFirstCycleImmediately(t *testing.T) {
	collector := &fakeCollector{}
	s := New(collector, &archive.SnapshotArchive{}, 15)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadInt32(&collector.persists) >= 1
	})
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	collector := &fakeCollector{block: make(chan struct{})}
	s := New(collector, &archive.SnapshotArchive{}, 15)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	go s.runCycle()
	waitFor(t, time.Second, func() bool {
		return atomic.LoadInt32(&collector.collects) == 1
	})

	// Second cycle fires while the first is still blocked in Collect.
	s.runCycle()
	if got := atomic.LoadInt32(&collector.collects); got != 1 {
		t.Errorf("collects = %d, want 1 (overlap must be skipped)", got)
	}

	close(collector.block)
	waitFor(t, time.Second, func() bool {
		return atomic.LoadInt32(&collector.persists) == 1
	})
}

func TestStopPreventsFurtherCycles(t *testing.T) {
	collector := &fakeCollector{}
	s := New(collector, &archive.SnapshotArchive{}, 15)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadInt32(&collector.persists) >= 1
	})

	s.Stop()
	before := atomic.LoadInt32(&collector.collects)

	s.runCycle()
	if got := atomic.LoadInt32(&collector.collects); got != before {
		t.Errorf("collects grew from %d to %d after Stop", before, got)
	}
}

func TestStopUnblocksRunningCycle(t *testing.T) {
	collector := &fakeCollector{block: make(chan struct{})}
	s := New(collector, &archive.SnapshotArchive{}, 15)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return atomic.LoadInt32(&collector.collects) == 1
	})

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a cycle was in flight")
	}
	if got := atomic.LoadInt32(&collector.persists); got != 0 {
		t.Errorf("cancelled cycle still persisted %d snapshots", got)
	}
}

func TestCronExpr(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{15, "*/15 * * * *"},
		{5, "*/5 * * * *"},
		{60, "0 * * * *"},
	}
	for _, tc := range cases {
		if got := cronExpr(tc.minutes); got != tc.want {
			t.Errorf("cronExpr(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestNormalizeInterval(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{15, 15},
		{1, 1},
		{60, 60},
		{0, 15},
		{-5, 15},
		{7, 15},
		{90, 15},
	}
	for _, tc := range cases {
		if got := normalizeInterval(tc.in); got != tc.want {
			t.Errorf("normalizeInterval(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
