// Package pipeline orchestrates one full analysis run per scan: fetch,
// the heuristic analyzers, the external audit, the screenshot and the final
// persisted write. Attempts restart from the top; partial progress from a
// failed attempt is never saved.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pagepulse/pagepulse/internal/analyzer"
	"github.com/pagepulse/pagepulse/internal/browser"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/lighthouse"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/model"
	"github.com/pagepulse/pagepulse/internal/store"
)

// Step labels recorded in failed_step when a run dies. Each label names the
// unit of work in flight when the failure happened.
const (
	StepInitializing = "initializing"
	StepFetch        = "fetch"
	StepCTA          = "cta"
	StepForms        = "forms"
	StepTrust        = "trust_signals"
	StepMobile       = "mobile"
	StepReadability  = "readability"
	StepImages       = "images"
	StepSchema       = "schema"
	StepLighthouse   = "lighthouse"
	StepScreenshot   = "screenshot"
	StepSave         = "save"

	// StepUnknown is recorded when attempts are exhausted without a more
	// specific attribution.
	StepUnknown = "unknown"
)

// Fetcher retrieves and parses the target page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*document.Document, error)
}

// Runner executes complete analysis runs against the store.
type Runner struct {
	store       *store.Store
	fetcher     Fetcher
	renderer    browser.Renderer
	audit       lighthouse.Runner
	cfg         config.PipelineConfig
	storageRoot string
	logger      logging.Logger
}

func NewRunner(st *store.Store, f Fetcher, renderer browser.Renderer, audit lighthouse.Runner, cfg config.PipelineConfig, storageRoot string, logger logging.Logger) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 300 * time.Second
	}
	return &Runner{
		store:       st,
		fetcher:     f,
		renderer:    renderer,
		audit:       audit,
		cfg:         cfg,
		storageRoot: storageRoot,
		logger:      logger.With(logging.Field{Key: "component", Value: "pipeline"}),
	}
}

// Run takes a pending scan through the full pipeline, retrying from scratch
// on failure. Only after every attempt has failed is the scan marked failed,
// carrying the step the last attempt died in.
func (r *Runner) Run(ctx context.Context, id string) error {
	scan, err := r.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load scan %s: %w", id, err)
	}
	if scan.Status.Terminal() {
		r.logger.Warn("skipping terminal scan",
			logging.Field{Key: "id", Value: id},
			logging.Field{Key: "status", Value: string(scan.Status)})
		return nil
	}

	if err := r.store.SetProcessing(ctx, id); err != nil {
		return fmt.Errorf("mark processing %s: %w", id, err)
	}

	failedStep := StepUnknown
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
		step, err := r.runOnce(runCtx, scan)
		cancel()

		if err == nil {
			r.logger.Info("scan completed",
				logging.Field{Key: "id", Value: id},
				logging.Field{Key: "url", Value: scan.URL},
				logging.Field{Key: "attempt", Value: attempt})
			return nil
		}

		failedStep = step
		r.logger.Warn("analysis attempt failed",
			logging.Field{Key: "id", Value: id},
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "step", Value: step},
			logging.Field{Key: "error", Value: err.Error()})

		if ctx.Err() != nil {
			break
		}
	}

	// The parent context may already be gone; the failure write must not be.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.store.SetFailed(persistCtx, id, failedStep); err != nil {
		r.logger.Error("recording scan failure",
			logging.Field{Key: "id", Value: id},
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	return fmt.Errorf("scan %s failed at step %s", id, failedStep)
}

// runOnce performs a single attempt. The returned step names the work in
// flight when the error (or panic) occurred.
func (r *Runner) runOnce(ctx context.Context, scan *model.Scan) (step string, retErr error) {
	step = StepInitializing
	defer func() {
		if p := recover(); p != nil {
			retErr = fmt.Errorf("panic: %v", p)
		}
	}()

	step = StepFetch
	doc, err := r.fetcher.Fetch(ctx, scan.URL)
	if err != nil {
		return step, err
	}

	result := &model.AnalysisResult{}

	step = StepCTA
	ctaScore, ctaDetails := analyzer.CTA(doc)
	result.CTAScore = &ctaScore
	result.CTADetails = ctaDetails

	step = StepForms
	formScore, formDetails := analyzer.FormFriction(doc)
	result.FormFrictionScore = &formScore
	result.FormDetails = formDetails

	step = StepTrust
	result.TrustSignals = analyzer.TrustSignals(doc)

	step = StepMobile
	result.MobileIssues = analyzer.Mobile(ctx, doc, scan.URL, r.renderer, r.logger)
	if err := ctx.Err(); err != nil {
		return step, err
	}

	step = StepReadability
	result.ReadabilityScore = analyzer.Readability(doc)

	step = StepImages
	result.ImageIssues = analyzer.ImageOptimization(doc)

	step = StepSchema
	result.SchemaDetected = analyzer.SchemaMarkup(doc)

	step = StepLighthouse
	r.runLighthouse(ctx, scan, result)
	if err := ctx.Err(); err != nil {
		return step, err
	}

	step = StepScreenshot
	r.captureScreenshot(ctx, scan, result)
	if err := ctx.Err(); err != nil {
		return step, err
	}

	step = StepSave
	if err := r.store.SaveResults(ctx, scan.ID, result); err != nil {
		return step, err
	}
	return step, nil
}

// runLighthouse is best-effort: a failed audit leaves the three scores nil.
func (r *Runner) runLighthouse(ctx context.Context, scan *model.Scan, result *model.AnalysisResult) {
	if r.audit == nil {
		return
	}
	report, err := r.audit.Run(ctx, scan.URL)
	if err != nil {
		r.logger.Warn("lighthouse audit failed",
			logging.Field{Key: "id", Value: scan.ID},
			logging.Field{Key: "url", Value: scan.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	result.LighthousePerformance = report.Performance
	result.LighthouseAccessibility = report.Accessibility
	result.LighthouseSEO = report.SEO
}

// captureScreenshot is best-effort: a failed render or write leaves the
// screenshot path nil.
func (r *Runner) captureScreenshot(ctx context.Context, scan *model.Scan, result *model.AnalysisResult) {
	if r.renderer == nil {
		return
	}
	png, err := r.renderer.CaptureFullPage(ctx, scan.URL, browser.Desktop)
	if err != nil {
		r.logger.Warn("screenshot capture failed",
			logging.Field{Key: "id", Value: scan.ID},
			logging.Field{Key: "url", Value: scan.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	dir := filepath.Join(r.storageRoot, "public", "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.logger.Warn("creating screenshot directory",
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	if err := os.WriteFile(filepath.Join(dir, scan.ID+".png"), png, 0644); err != nil {
		r.logger.Warn("writing screenshot file",
			logging.Field{Key: "id", Value: scan.ID},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	rel := "screenshots/" + scan.ID + ".png"
	result.ScreenshotPath = &rel
}
