package report_test

import (
	"testing"

	"github.com/pagepulse/pagepulse/internal/model"
	"github.com/pagepulse/pagepulse/internal/report"
)

func intp(v int) *int { return &v }

func TestBuild_AllScoresPresent(t *testing.T) {
	t.Parallel()
	scan := &model.Scan{
		LighthousePerformance:   intp(90),
		LighthouseAccessibility: intp(80),
		LighthouseSEO:           intp(100),
		CTAScore:                intp(95),
		FormFrictionScore:       intp(77),
		ReadabilityScore:        intp(61),
	}

	r := report.Build(scan, "/storage")

	// (90+80+100+95+77+61)/6 = 83.83 rounds to 84.
	if r.OverallScore == nil || *r.OverallScore != 84 {
		t.Errorf("overall = %v, want 84", r.OverallScore)
	}
	// (90+80+100)/3 = 90.
	if r.LighthouseAverage == nil || *r.LighthouseAverage != 90 {
		t.Errorf("lighthouse average = %v, want 90", r.LighthouseAverage)
	}
}

func TestBuild_NilScoresIgnoredInMean(t *testing.T) {
	t.Parallel()
	scan := &model.Scan{
		CTAScore:         intp(100),
		ReadabilityScore: intp(50),
	}

	r := report.Build(scan, "/storage")

	if r.OverallScore == nil || *r.OverallScore != 75 {
		t.Errorf("overall = %v, want mean of present scores only", r.OverallScore)
	}
	if r.LighthouseAverage != nil {
		t.Errorf("lighthouse average = %v, want nil when no audit ran", r.LighthouseAverage)
	}
}

func TestBuild_NoScoresAtAll(t *testing.T) {
	t.Parallel()
	r := report.Build(&model.Scan{}, "/storage")

	if r.OverallScore != nil {
		t.Errorf("overall = %v, want nil", r.OverallScore)
	}
	if r.ScreenshotURL != nil {
		t.Errorf("screenshot url = %v, want nil", r.ScreenshotURL)
	}
}

func TestBuild_Counts(t *testing.T) {
	t.Parallel()
	scan := &model.Scan{
		CTADetails:   []model.CTADetail{{}, {}},
		FormDetails:  []model.FormDetail{{}},
		TrustSignals: []model.TrustSignal{{}, {}, {}},
		MobileIssues: []model.MobileIssue{{}},
		ImageIssues:  []model.ImageIssue{{}, {}},
	}

	r := report.Build(scan, "/storage")

	if r.CTACount != 2 || r.FormCount != 1 || r.TrustSignalCount != 3 ||
		r.MobileIssueCount != 1 || r.ImageIssueCount != 2 {
		t.Errorf("counts = %d/%d/%d/%d/%d",
			r.CTACount, r.FormCount, r.TrustSignalCount, r.MobileIssueCount, r.ImageIssueCount)
	}
}

func TestBuild_ScreenshotURL(t *testing.T) {
	t.Parallel()
	path := "screenshots/abc.png"
	scan := &model.Scan{ScreenshotPath: &path}

	r := report.Build(scan, "/storage")
	if r.ScreenshotURL == nil || *r.ScreenshotURL != "/storage/screenshots/abc.png" {
		t.Errorf("screenshot url = %v", r.ScreenshotURL)
	}

	// A trailing slash on the prefix must not double up.
	r = report.Build(scan, "/storage/")
	if r.ScreenshotURL == nil || *r.ScreenshotURL != "/storage/screenshots/abc.png" {
		t.Errorf("screenshot url with trailing slash = %v", r.ScreenshotURL)
	}
}

func TestBuildAll(t *testing.T) {
	t.Parallel()
	scans := []*model.Scan{
		{ID: "a", CTAScore: intp(10)},
		{ID: "b"},
	}

	reports := report.BuildAll(scans, "/storage")
	if len(reports) != 2 {
		t.Fatalf("len = %d, want 2", len(reports))
	}
	if reports[0].ID != "a" || reports[1].ID != "b" {
		t.Errorf("order not preserved: %+v", reports)
	}
}
