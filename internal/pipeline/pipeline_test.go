package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/fetcher"
	"github.com/pagepulse/pagepulse/internal/lighthouse"
	"github.com/pagepulse/pagepulse/internal/model"
	"github.com/pagepulse/pagepulse/internal/pipeline"
	"github.com/pagepulse/pagepulse/internal/store"
	"github.com/pagepulse/pagepulse/internal/testutil"
)

const testPage = `<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"></head>
<body>
	<main>The cat sat on the mat. The dog ran up the hill. The sun was out all day. The kids had fun at the park.</main>
	<button>Buy Now</button>
	<form action="/subscribe"><input name="email" placeholder="Email"></form>
	<img src="/hero.webp" alt="Hero" width="800" height="400" loading="lazy">
</body>
</html>`

type testRig struct {
	store    *store.Store
	web      *testutil.DummyWebClient
	renderer *testutil.DummyRenderer
	audit    *testutil.DummyAuditRunner
	runner   *pipeline.Runner
	root     string
}

func newTestRig(t *testing.T, attempts int) *testRig {
	t.Helper()

	root := t.TempDir()
	logger := &testutil.DummyLogger{}

	st, err := store.New(root, logger)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	perf, seo := 90, 100
	rig := &testRig{
		store: st,
		web: &testutil.DummyWebClient{
			Bodies: map[string]string{"https://example.com": testPage},
		},
		renderer: &testutil.DummyRenderer{
			ScrollWidth: 375,
			Screenshot:  []byte("png-bytes"),
		},
		audit: &testutil.DummyAuditRunner{
			Report: &lighthouse.Report{Performance: &perf, SEO: &seo},
		},
		root: root,
	}

	rig.runner = pipeline.NewRunner(
		st,
		fetcher.New(rig.web, logger),
		rig.renderer,
		rig.audit,
		config.PipelineConfig{MaxAttempts: attempts, RunTimeout: 5 * time.Second},
		root,
		logger,
	)
	return rig
}

func TestRunner_SuccessfulRun(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 3)
	ctx := context.Background()

	scan, err := rig.store.Create(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := rig.runner.Run(ctx, scan.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := rig.store.Get(ctx, scan.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.CTAScore == nil || *got.CTAScore != 100 {
		t.Errorf("cta score = %v, want 100", got.CTAScore)
	}
	if got.FormFrictionScore == nil || *got.FormFrictionScore != 97 {
		t.Errorf("form score = %v, want 97", got.FormFrictionScore)
	}
	if got.ReadabilityScore == nil {
		t.Error("readability score missing")
	}
	if got.LighthousePerformance == nil || *got.LighthousePerformance != 90 {
		t.Errorf("performance = %v, want 90", got.LighthousePerformance)
	}
	if got.LighthouseAccessibility != nil {
		t.Errorf("accessibility = %v, want nil (absent from report)", got.LighthouseAccessibility)
	}

	if got.ScreenshotPath == nil {
		t.Fatal("screenshot path missing")
	}
	data, err := os.ReadFile(filepath.Join(rig.root, "public", filepath.FromSlash(*got.ScreenshotPath)))
	if err != nil {
		t.Fatalf("reading screenshot file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("screenshot content = %q", data)
	}
}

func TestRunner_FetchFailureExhaustsAttempts(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 2)
	ctx := context.Background()

	rig.web.FailURLs = map[string]bool{"https://down.example.com": true}
	scan, _ := rig.store.Create(ctx, "https://down.example.com")

	if err := rig.runner.Run(ctx, scan.ID); err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}

	if rig.web.RequestCount() != 2 {
		t.Errorf("fetch attempts = %d, want one per attempt", rig.web.RequestCount())
	}

	got, _ := rig.store.Get(ctx, scan.ID)
	if got.Status != model.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.FailedStep == nil || *got.FailedStep != pipeline.StepFetch {
		t.Errorf("failed_step = %v, want %q", got.FailedStep, pipeline.StepFetch)
	}
}

func TestRunner_AuditAndScreenshotDegrade(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 1)
	ctx := context.Background()

	rig.audit.Err = errors.New("lighthouse binary not found")
	rig.renderer.ScreenshotErr = errors.New("no chrome")
	scan, _ := rig.store.Create(ctx, "https://example.com")

	if err := rig.runner.Run(ctx, scan.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := rig.store.Get(ctx, scan.ID)
	if got.Status != model.StatusCompleted {
		t.Fatalf("status = %q, degraded run must still complete", got.Status)
	}
	if got.LighthousePerformance != nil || got.LighthouseSEO != nil {
		t.Errorf("lighthouse scores = %v/%v, want nil", got.LighthousePerformance, got.LighthouseSEO)
	}
	if got.ScreenshotPath != nil {
		t.Errorf("screenshot path = %v, want nil", got.ScreenshotPath)
	}
	if got.CTAScore == nil {
		t.Error("heuristic results must survive degradation")
	}
}

func TestRunner_TerminalScanSkipped(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 3)
	ctx := context.Background()

	scan, _ := rig.store.Create(ctx, "https://example.com")
	if err := rig.store.SetFailed(ctx, scan.ID, "fetch"); err != nil {
		t.Fatalf("SetFailed: %v", err)
	}

	if err := rig.runner.Run(ctx, scan.ID); err != nil {
		t.Fatalf("Run on terminal scan: %v", err)
	}
	if rig.web.RequestCount() != 0 {
		t.Errorf("terminal scan must not be fetched, got %d requests", rig.web.RequestCount())
	}
}

func TestRunner_MissingScan(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 1)

	if err := rig.runner.Run(context.Background(), "no-such-id"); err == nil {
		t.Error("expected an error for an unknown scan id")
	}
}

func TestQueue_Backpressure(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 1)
	logger := &testutil.DummyLogger{}

	// Workers never started, so the buffer fills immediately.
	q := pipeline.NewQueue(rig.runner, 1, 1, logger)

	if err := q.Enqueue("first"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue("second"); !errors.Is(err, pipeline.ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}

	q.Stop()
	if err := q.Enqueue("third"); !errors.Is(err, pipeline.ErrQueueClosed) {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
}

func TestQueue_RequeueRecoversPendingScans(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 1)
	logger := &testutil.DummyLogger{}
	ctx := context.Background()

	// Accepted but never drained, as after a shutdown with a loaded buffer.
	orphan, _ := rig.store.Create(ctx, "https://example.com")
	done, _ := rig.store.Create(ctx, "https://done.example.com")
	_ = rig.store.SetFailed(ctx, done.ID, "fetch")

	q := pipeline.NewQueue(rig.runner, 2, 4, logger)
	q.Start(ctx)

	n, err := q.Requeue(ctx, rig.store)
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if n != 1 {
		t.Errorf("requeued = %d, want the pending scan only", n)
	}
	q.Stop()

	got, _ := rig.store.Get(ctx, orphan.ID)
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed after recovery", got.Status)
	}
}

func TestQueue_ProcessesEnqueuedScan(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t, 1)
	logger := &testutil.DummyLogger{}
	ctx := context.Background()

	scan, _ := rig.store.Create(ctx, "https://example.com")

	q := pipeline.NewQueue(rig.runner, 2, 4, logger)
	q.Start(ctx)
	if err := q.Enqueue(scan.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Stop()

	got, _ := rig.store.Get(ctx, scan.ID)
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed after drain", got.Status)
	}
}
