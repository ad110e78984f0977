// Package lighthouse shells out to the Lighthouse CLI for third-party
// performance/accessibility/SEO scores. The pipeline treats any failure here
// as step-local degradation; this package only reports the error.
package lighthouse

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pagepulse/pagepulse/internal/logging"
)

// Report carries the three audited category scores as integer percentages.
// A category absent from the CLI output is nil.
type Report struct {
	Performance   *int
	Accessibility *int
	SEO           *int
}

// Runner produces an audit Report for a URL.
type Runner interface {
	Run(ctx context.Context, url string) (*Report, error)
}

// CLIRunner invokes the lighthouse binary in headless mode, writing JSON to
// a unique temp file per run.
type CLIRunner struct {
	binPath string
	timeout time.Duration
	tmpDir  string
	logger  logging.Logger
}

func NewCLIRunner(binPath string, timeout time.Duration, logger logging.Logger) *CLIRunner {
	if binPath == "" {
		binPath = "lighthouse"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &CLIRunner{
		binPath: binPath,
		timeout: timeout,
		tmpDir:  os.TempDir(),
		logger:  logger.With(logging.Field{Key: "component", Value: "lighthouse"}),
	}
}

// Run executes the CLI against the URL. The run succeeds if the process
// exits cleanly or the output file exists despite a non-zero exit.
func (r *CLIRunner) Run(ctx context.Context, url string) (*Report, error) {
	outputPath := filepath.Join(r.tmpDir, "lighthouse-"+uuid.New().String()+".json")
	defer os.Remove(outputPath)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binPath, url,
		"--output=json",
		"--output-path="+outputPath,
		"--chrome-flags=--headless --no-sandbox --disable-gpu --disable-dev-shm-usage",
		"--only-categories=performance,accessibility,seo",
		"--quiet",
	)

	start := time.Now()
	runErr := cmd.Run()

	data, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		if runErr != nil {
			return nil, fmt.Errorf("lighthouse cli: %w", runErr)
		}
		return nil, fmt.Errorf("lighthouse output file not created: %w", readErr)
	}

	report, err := parseReport(data)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("lighthouse audit complete",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "took", Value: time.Since(start).String()})

	return report, nil
}

// parseReport extracts categories.<name>.score, a 0..1 fraction, as an
// integer percentage.
func parseReport(data []byte) (*Report, error) {
	var payload struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse lighthouse json: %w", err)
	}

	score := func(category string) *int {
		c, ok := payload.Categories[category]
		if !ok || c.Score == nil {
			return nil
		}
		v := int(math.Round(*c.Score * 100))
		return &v
	}

	return &Report{
		Performance:   score("performance"),
		Accessibility: score("accessibility"),
		SEO:           score("seo"),
	}, nil
}
