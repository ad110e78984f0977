package analyzer

import (
	"strings"

	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/model"
)

// trustCategories are scanned against the full body text; every matching
// phrase produces a signal, not just the first per category.
var trustCategories = []struct {
	category string
	patterns []string
}{
	{"guarantee", []string{"money back", "guarantee", "guaranteed", "risk-free", "risk free"}},
	{"security", []string{"secure", "ssl", "encrypted", "safe checkout", "secure checkout", "protected"}},
	{"reviews", []string{"reviews", "testimonials", "rated", "stars", "customer feedback"}},
	{"certifications", []string{"certified", "accredited", "approved", "verified", "trusted"}},
	{"shipping", []string{"free shipping", "fast delivery", "free delivery", "express shipping"}},
	{"support", []string{"24/7", "customer support", "live chat", "help center"}},
}

// trustBadgePatterns are matched against image src/alt; first match per image.
var trustBadgePatterns = []string{
	"trust", "secure", "badge", "seal", "certified", "ssl",
	"mcafee", "norton", "verisign", "bbb",
}

// reviewSchemaMarkers are the quoting variants of a Review structured-data
// type, probed against the raw HTML source.
var reviewSchemaMarkers = []string{
	`"@type":"Review"`,
	`"@type": "Review"`,
	`'@type':'Review'`,
}

// TrustSignals collects credibility indicators: trust phrases in body text,
// badge/seal images, and Review structured data. It produces a raw signal
// list with no score.
func TrustSignals(doc *document.Document) []model.TrustSignal {
	signals := []model.TrustSignal{}

	var bodyText string
	if body := doc.Find("body"); len(body) > 0 {
		bodyText = strings.ToLower(body[0].Text())
	}

	for _, cat := range trustCategories {
		for _, pattern := range cat.patterns {
			if strings.Contains(bodyText, pattern) {
				signals = append(signals, model.TrustSignal{
					Category: cat.category,
					Pattern:  pattern,
					Found:    true,
				})
			}
		}
	}

	for _, img := range doc.Find("img") {
		src := strings.ToLower(img.AttrOr("src", ""))
		altLower := strings.ToLower(img.AttrOr("alt", ""))

		for _, pattern := range trustBadgePatterns {
			if strings.Contains(src, pattern) || strings.Contains(altLower, pattern) {
				signal := model.TrustSignal{
					Category: "badge",
					Pattern:  pattern,
					Found:    true,
					Element:  "img",
				}
				if alt, ok := img.Attr("alt"); ok {
					signal.Alt = &alt
				}
				signals = append(signals, signal)
				break
			}
		}
	}

	raw := doc.Raw()
	for _, marker := range reviewSchemaMarkers {
		if strings.Contains(raw, marker) {
			signals = append(signals, model.TrustSignal{
				Category: "schema",
				Pattern:  "Review schema detected",
				Found:    true,
			})
			break
		}
	}

	return signals
}
