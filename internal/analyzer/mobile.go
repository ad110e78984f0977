package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pagepulse/pagepulse/internal/browser"
	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/model"
)

const (
	// minTapTargetPx is Apple's minimum recommended tap target size.
	minTapTargetPx = 44

	minFontSizePx = 12

	// scrollTolerancePx absorbs sub-pixel rounding and scrollbar width.
	scrollTolerancePx = 10
)

const tappableSelector = `a, button, input[type="submit"], input[type="button"]`

var (
	inlineDimensionRe  = regexp.MustCompile(`(?:width|height):\s*(\d+)px`)
	inlineFontSizePxRe = regexp.MustCompile(`font-size:\s*(\d+)px`)
)

// Mobile combines static viewport/tap-target/text checks with one dynamic
// headless-browser render at a mobile viewport. The render is best-effort:
// a failure is logged and produces no issue rather than aborting the run.
func Mobile(ctx context.Context, doc *document.Document, url string, renderer browser.Renderer, logger logging.Logger) []model.MobileIssue {
	issues := []model.MobileIssue{}

	if metas := doc.Find(`meta[name="viewport"]`); len(metas) == 0 {
		issues = append(issues, model.MobileIssue{
			Type:     "viewport",
			Issue:    "Missing viewport meta tag",
			Severity: model.SeverityHigh,
		})
	} else if !strings.Contains(metas[0].AttrOr("content", ""), "width=device-width") {
		issues = append(issues, model.MobileIssue{
			Type:     "viewport",
			Issue:    "Viewport not set to device-width",
			Severity: model.SeverityMedium,
		})
	}

	if renderer != nil {
		width, err := renderer.MeasureScrollWidth(ctx, url, browser.Mobile)
		switch {
		case err != nil:
			logger.Warn("mobile viewport render failed",
				logging.Field{Key: "url", Value: url},
				logging.Field{Key: "error", Value: err.Error()})
		case width > browser.Mobile.Width+scrollTolerancePx:
			issues = append(issues, model.MobileIssue{
				Type:     "horizontal_scroll",
				Issue:    fmt.Sprintf("Page width (%dpx) exceeds mobile viewport (%dpx)", width, browser.Mobile.Width),
				Severity: model.SeverityHigh,
			})
		}
	}

	smallTapTargets := 0
	for _, el := range doc.Find(tappableSelector) {
		if m := inlineDimensionRe.FindStringSubmatch(el.AttrOr("style", "")); m != nil {
			if px, err := strconv.Atoi(m[1]); err == nil && px < minTapTargetPx {
				smallTapTargets++
			}
		}
	}
	if smallTapTargets > 0 {
		issues = append(issues, model.MobileIssue{
			Type:     "tap_targets",
			Issue:    fmt.Sprintf("%d potentially small tap targets detected", smallTapTargets),
			Severity: model.SeverityMedium,
		})
	}

	// One aggregate warning no matter how many elements match.
	smallTextWarned := false
	for _, el := range doc.Find("p, span, li, td") {
		if smallTextWarned {
			break
		}
		if m := inlineFontSizePxRe.FindStringSubmatch(el.AttrOr("style", "")); m != nil {
			if px, err := strconv.Atoi(m[1]); err == nil && px < minFontSizePx {
				issues = append(issues, model.MobileIssue{
					Type:     "text_size",
					Issue:    "Some text may be too small on mobile",
					Severity: model.SeverityLow,
				})
				smallTextWarned = true
			}
		}
	}

	return issues
}
