package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/model"
	"github.com/pagepulse/pagepulse/internal/store"
	"github.com/pagepulse/pagepulse/internal/sweeper"
	"github.com/pagepulse/pagepulse/internal/testutil"
)

func TestSweeper_SweepReclassifiesStuckScans(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	st, err := store.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	stuck, _ := st.Create(ctx, "https://stuck.example.com")
	_ = st.SetProcessing(ctx, stuck.ID)
	pending, _ := st.Create(ctx, "https://pending.example.com")

	// A negative window makes every processing scan stale immediately.
	sw := sweeper.New(st, config.SweeperConfig{
		StaleAfter: -2 * time.Second,
		Interval:   time.Minute,
	}, logger)

	if n := sw.Sweep(ctx); n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}

	got, _ := st.Get(ctx, stuck.ID)
	if got.Status != model.StatusFailed || got.FailedStep == nil || *got.FailedStep != "timeout" {
		t.Errorf("stuck scan = %+v, want failed/timeout", got)
	}

	got, _ = st.Get(ctx, pending.ID)
	if got.Status != model.StatusPending {
		t.Errorf("pending scan = %+v, must be untouched", got)
	}
}

func TestSweeper_FreshScansSurvive(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	st, err := store.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	scan, _ := st.Create(ctx, "https://example.com")
	_ = st.SetProcessing(ctx, scan.ID)

	sw := sweeper.New(st, config.SweeperConfig{StaleAfter: time.Hour, Interval: time.Minute}, logger)
	if n := sw.Sweep(ctx); n != 0 {
		t.Errorf("swept = %d, want 0", n)
	}

	got, _ := st.Get(ctx, scan.ID)
	if got.Status != model.StatusProcessing {
		t.Errorf("status = %q, want processing", got.Status)
	}
}
