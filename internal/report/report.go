// Package report decorates a stored scan with the derived fields the API
// exposes: aggregate scores, finding counts and the public screenshot URL.
package report

import (
	"math"
	"strings"

	"github.com/pagepulse/pagepulse/internal/model"
)

// Report is a scan plus its derived presentation fields. Derived values are
// computed on read and never persisted.
type Report struct {
	model.Scan

	// OverallScore is the rounded mean of every score that has a value.
	// It is nil only when no score has been determined at all.
	OverallScore *int `json:"overall_score"`

	// LighthouseAverage is the rounded mean of the lighthouse categories
	// that have a value.
	LighthouseAverage *int `json:"lighthouse_average"`

	CTACount         int `json:"cta_count"`
	FormCount        int `json:"form_count"`
	TrustSignalCount int `json:"trust_signal_count"`
	MobileIssueCount int `json:"mobile_issue_count"`
	ImageIssueCount  int `json:"image_issue_count"`

	// ScreenshotURL is the public URL of the stored screenshot, nil when no
	// screenshot was captured.
	ScreenshotURL *string `json:"screenshot_url"`
}

// Build computes the derived fields for one scan. assetPrefix is the URL
// path the screenshot directory is served under, e.g. "/storage".
func Build(scan *model.Scan, assetPrefix string) *Report {
	r := &Report{Scan: *scan}

	r.OverallScore = meanOf(
		scan.LighthousePerformance,
		scan.LighthouseAccessibility,
		scan.LighthouseSEO,
		scan.CTAScore,
		scan.FormFrictionScore,
		scan.ReadabilityScore,
	)
	r.LighthouseAverage = meanOf(
		scan.LighthousePerformance,
		scan.LighthouseAccessibility,
		scan.LighthouseSEO,
	)

	r.CTACount = len(scan.CTADetails)
	r.FormCount = len(scan.FormDetails)
	r.TrustSignalCount = len(scan.TrustSignals)
	r.MobileIssueCount = len(scan.MobileIssues)
	r.ImageIssueCount = len(scan.ImageIssues)

	if scan.ScreenshotPath != nil && *scan.ScreenshotPath != "" {
		url := strings.TrimSuffix(assetPrefix, "/") + "/" + strings.TrimPrefix(*scan.ScreenshotPath, "/")
		r.ScreenshotURL = &url
	}

	return r
}

// BuildAll maps Build over a list of scans.
func BuildAll(scans []*model.Scan, assetPrefix string) []*Report {
	reports := make([]*Report, 0, len(scans))
	for _, scan := range scans {
		reports = append(reports, Build(scan, assetPrefix))
	}
	return reports
}

// meanOf averages the non-nil values, rounding half away from zero. All-nil
// input yields nil.
func meanOf(scores ...*int) *int {
	sum, n := 0, 0
	for _, s := range scores {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := int(math.Round(float64(sum) / float64(n)))
	return &mean
}
