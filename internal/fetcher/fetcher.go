// Package fetcher retrieves the target page and parses it into a Document.
// A fetch fault is the only fatal fault of the analysis pipeline: without a
// parseable document there is nothing to analyze.
package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/webclient"
)

// Browser-identifying headers sent with every fetch. Some sites serve
// degraded or blocked responses to non-browser user agents.
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.5"
)

// FetchError reports an unreachable URL, a non-2xx response or an
// unparseable document. StatusCode is zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher performs a single GET per run. Retry policy belongs to the
// pipeline, not this layer.
type Fetcher struct {
	wc     webclient.WebClient
	logger logging.Logger
}

func New(wc webclient.WebClient, logger logging.Logger) *Fetcher {
	return &Fetcher{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "fetcher"}),
	}
}

// Fetch retrieves the URL and returns the parsed document.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*document.Document, error) {
	req := &webclient.Request{
		Method: http.MethodGet,
		URL:    url,
		Headers: http.Header{
			"User-Agent":      {userAgent},
			"Accept":          {acceptHeader},
			"Accept-Language": {acceptLanguage},
		},
	}

	resp, err := f.wc.Do(ctx, req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("non-success response",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "status", Value: resp.StatusCode})
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	doc, err := document.Parse(string(resp.Body))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	f.logger.Debug("fetched document",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "bytes", Value: len(resp.Body)})

	return doc, nil
}
