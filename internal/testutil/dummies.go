// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/pagepulse/pagepulse/internal/browser"
	"github.com/pagepulse/pagepulse/internal/lighthouse"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns how many warnings were recorded.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// Bodies maps a URL to the HTML served for it; unmapped URLs get status 404.
// Set FailURLs[url] = true to force a transport error for a specific URL.
type DummyWebClient struct {
	Bodies        map[string]string
	FailURLs      map[string]bool
	ResponseDelay time.Duration

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}

	body, ok := d.Bodies[req.URL]
	status := 200
	if !ok {
		status = 404
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte(body),
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns how many requests were recorded.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Renderer ──────────────────────────────────────────────────────────

// DummyRenderer implements browser.Renderer without a real browser.
// ScrollWidth and Screenshot are returned verbatim; the Err fields force
// the corresponding call to fail.
type DummyRenderer struct {
	ScrollWidth   int
	ScrollErr     error
	Screenshot    []byte
	ScreenshotErr error

	mu           sync.Mutex
	MeasureCalls []string
	CaptureCalls []string
}

func (d *DummyRenderer) MeasureScrollWidth(_ context.Context, url string, _ browser.Viewport) (int, error) {
	d.mu.Lock()
	d.MeasureCalls = append(d.MeasureCalls, url)
	d.mu.Unlock()
	if d.ScrollErr != nil {
		return 0, d.ScrollErr
	}
	return d.ScrollWidth, nil
}

func (d *DummyRenderer) CaptureFullPage(_ context.Context, url string, _ browser.Viewport) ([]byte, error) {
	d.mu.Lock()
	d.CaptureCalls = append(d.CaptureCalls, url)
	d.mu.Unlock()
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	return d.Screenshot, nil
}

func (d *DummyRenderer) Close() error { return nil }

// ─── Audit runner ──────────────────────────────────────────────────────

// DummyAuditRunner implements lighthouse.Runner with a fixed report.
type DummyAuditRunner struct {
	Report *lighthouse.Report
	Err    error

	mu   sync.Mutex
	URLs []string
}

func (d *DummyAuditRunner) Run(_ context.Context, url string) (*lighthouse.Report, error) {
	d.mu.Lock()
	d.URLs = append(d.URLs, url)
	d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Report, nil
}

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
