// Package browser exposes the narrow headless-browser capability the
// pipeline needs: measuring rendered page width and capturing full-page
// screenshots. Keeping the contract small lets tests substitute a fake
// without any browser binary.
package browser

import "context"

// Viewport describes the emulated window for one render.
type Viewport struct {
	Width  int
	Height int

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
}

// Mobile is the fixed viewport used for the horizontal-scroll check
// (iPhone X dimensions).
var Mobile = Viewport{
	Width:     375,
	Height:    812,
	UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
}

// Desktop is the fixed viewport used for full-page screenshots.
var Desktop = Viewport{Width: 1920, Height: 1080}

// Renderer drives a headless browser against a URL.
type Renderer interface {
	// MeasureScrollWidth renders the URL, waits for network idle and
	// returns document.documentElement.scrollWidth in pixels.
	MeasureScrollWidth(ctx context.Context, url string, vp Viewport) (int, error)

	// CaptureFullPage renders the URL, waits for network idle and returns
	// a full-page PNG.
	CaptureFullPage(ctx context.Context, url string, vp Viewport) ([]byte, error)

	Close() error
}
