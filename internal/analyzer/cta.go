package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/model"
)

// ctaSelector collects the elements that can plausibly act as a
// call to action.
const ctaSelector = `button, a.btn, a.button, [role="button"], input[type="submit"], .cta`

// ctaPhrases is the fixed call-to-action vocabulary. Matching is substring
// on lowercased element text; the first matching phrase wins per element.
var ctaPhrases = []string{
	"buy now", "buy", "shop now", "shop", "add to cart", "add to bag",
	"get started", "start now", "sign up", "subscribe", "join now",
	"learn more", "get quote", "book now", "reserve", "order now",
	"download", "try free", "start free", "claim", "grab", "get yours",
}

var inlineFontSizeRe = regexp.MustCompile(`font-size:\s*(\d+)`)

type ctaAccum struct {
	score   int
	details []model.CTADetail
}

// CTA scores call-to-action clarity. The score starts at 100 and is
// decremented per issue across all matched CTAs; a page with no recognizable
// CTA scores 0 outright.
func CTA(doc *document.Document) (int, []model.CTADetail) {
	acc := ctaAccum{score: 100, details: []model.CTADetail{}}
	for _, el := range doc.Find(ctaSelector) {
		acc = scoreCTAElement(acc, el)
	}

	if len(acc.details) == 0 {
		acc.score = 0
	}
	return clampScore(acc.score), acc.details
}

func scoreCTAElement(acc ctaAccum, el *document.Element) ctaAccum {
	text := strings.ToLower(strings.TrimSpace(el.Text()))

	matched := false
	for _, phrase := range ctaPhrases {
		if strings.Contains(text, phrase) {
			matched = true
			break
		}
	}
	if !matched {
		return acc
	}

	cta := model.CTADetail{
		Text:    el.Text(),
		Element: el.Tag(),
		Issues:  []string{},
	}

	if cta.Element == "a" {
		href := el.AttrOr("href", "")
		if href == "" || href == "#" {
			cta.Issues = append(cta.Issues, "Missing or invalid href")
			acc.score -= 5
		}
	}

	if text == "" && el.AttrOr("aria-label", "") == "" {
		cta.Issues = append(cta.Issues, "Missing accessible name")
		acc.score -= 10
	}

	if m := inlineFontSizeRe.FindStringSubmatch(el.AttrOr("style", "")); m != nil {
		if size, err := strconv.Atoi(m[1]); err == nil && size < 14 {
			cta.Issues = append(cta.Issues, "Font size may be too small")
			acc.score -= 5
		}
	}

	acc.details = append(acc.details, cta)
	return acc
}
