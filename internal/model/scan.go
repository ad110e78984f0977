// Package model holds the scan record and the per-analyzer detail shapes
// that are persisted and transmitted as JSON.
package model

import "time"

// Status is the lifecycle state of a scan. Once a scan reaches
// StatusCompleted or StatusFailed it is terminal for that run; resubmitting
// a URL creates a new record instead of mutating the old one.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Severity buckets used by mobile issues.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// CTADetail describes one detected call-to-action element.
type CTADetail struct {
	Text    string   `json:"text"`
	Element string   `json:"element"`
	Issues  []string `json:"issues"`
}

// FormInput describes one non-hidden, non-submit field of a form.
type FormInput struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Issues   []string `json:"issues"`
}

// FormDetail describes one form and its friction findings.
type FormDetail struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Inputs []FormInput `json:"inputs"`
	Issues []string    `json:"issues"`
}

// TrustSignal is one matched trust phrase, badge image or schema marker.
// Element and Alt are populated only for badge signals.
type TrustSignal struct {
	Category string  `json:"category"`
	Pattern  string  `json:"pattern"`
	Found    bool    `json:"found"`
	Element  string  `json:"element,omitempty"`
	Alt      *string `json:"alt,omitempty"`
}

// MobileIssue is one mobile-friendliness finding.
type MobileIssue struct {
	Type     string `json:"type"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
}

// ImageIssue lists the optimization flags raised for one image.
// Alt is nil when the attribute is absent, distinct from an empty value.
type ImageIssue struct {
	Src    string   `json:"src"`
	Alt    *string  `json:"alt"`
	Issues []string `json:"issues"`
}

// SchemaEntry is one detected structured-data type, or the single trailing
// recommendation entry (Type "recommendation" with Message/Missing set).
type SchemaEntry struct {
	Type    string   `json:"type"`
	Format  string   `json:"format,omitempty"`
	Valid   bool     `json:"valid,omitempty"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Structured-data formats reported in SchemaEntry.Format.
const (
	SchemaFormatJSONLD    = "JSON-LD"
	SchemaFormatMicrodata = "Microdata"
)

// AnalysisResult is the mutable aggregate a pipeline run builds up step by
// step. Every field is independently nullable: absent means "not determined",
// not "zero". It is persisted onto the scan record in one write when the run
// completes.
type AnalysisResult struct {
	LighthousePerformance   *int
	LighthouseAccessibility *int
	LighthouseSEO           *int
	CTAScore                *int
	CTADetails              []CTADetail
	FormFrictionScore       *int
	FormDetails             []FormDetail
	TrustSignals            []TrustSignal
	MobileIssues            []MobileIssue
	ReadabilityScore        *int
	ImageIssues             []ImageIssue
	SchemaDetected          []SchemaEntry
	ScreenshotPath          *string
}

// Scan is the persisted record for one analysis run of one URL.
type Scan struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	CMSType *string `json:"cms_type"`

	Status     Status  `json:"status"`
	FailedStep *string `json:"failed_step"`

	LighthousePerformance   *int `json:"lighthouse_performance"`
	LighthouseAccessibility *int `json:"lighthouse_accessibility"`
	LighthouseSEO           *int `json:"lighthouse_seo"`

	CTAScore   *int        `json:"cta_score"`
	CTADetails []CTADetail `json:"cta_details"`

	FormFrictionScore *int         `json:"form_friction_score"`
	FormDetails       []FormDetail `json:"form_details"`

	TrustSignals []TrustSignal `json:"trust_signals"`
	MobileIssues []MobileIssue `json:"mobile_issues"`

	ReadabilityScore *int `json:"readability_score"`

	ImageIssues    []ImageIssue  `json:"image_issues"`
	SchemaDetected []SchemaEntry `json:"schema_detected"`

	ScreenshotPath *string `json:"screenshot_path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
