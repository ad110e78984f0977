package analyzer_test

import (
	"testing"

	"github.com/pagepulse/pagepulse/internal/analyzer"
	"github.com/pagepulse/pagepulse/internal/document"
)

func mustParse(t *testing.T, html string) *document.Document {
	t.Helper()
	doc, err := document.Parse(html)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestCTA_NoRecognizableCTAScoresZero(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><p>Just an article.</p><button>Close</button></body>`)

	score, details := analyzer.CTA(doc)
	if score != 0 {
		t.Errorf("score = %d, want 0", score)
	}
	if len(details) != 0 {
		t.Errorf("details = %d, want 0", len(details))
	}
}

func TestCTA_CleanCTAScoresFull(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><button>Buy Now</button></body>`)

	score, details := analyzer.CTA(doc)
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}
	if len(details) != 1 {
		t.Fatalf("details = %d, want 1", len(details))
	}
	if details[0].Element != "button" || details[0].Text != "Buy Now" {
		t.Errorf("detail = %+v", details[0])
	}
	if len(details[0].Issues) != 0 {
		t.Errorf("issues = %v, want none", details[0].Issues)
	}
}

func TestCTA_AnchorWithoutHrefPenalized(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><a class="btn" href="#">Learn more</a></body>`)

	score, details := analyzer.CTA(doc)
	if score != 95 {
		t.Errorf("score = %d, want 95", score)
	}
	if len(details) != 1 || len(details[0].Issues) != 1 {
		t.Fatalf("details = %+v", details)
	}
	if details[0].Issues[0] != "Missing or invalid href" {
		t.Errorf("issue = %q", details[0].Issues[0])
	}
}

func TestCTA_SmallFontPenalized(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><button style="font-size: 10px">Subscribe</button></body>`)

	score, details := analyzer.CTA(doc)
	if score != 95 {
		t.Errorf("score = %d, want 95", score)
	}
	if len(details) != 1 || details[0].Issues[0] != "Font size may be too small" {
		t.Fatalf("details = %+v", details)
	}
}

func TestCTA_PhraseMatchIsCaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<body><a class="button" href="/cart">ADD TO CART today</a></body>`)

	score, details := analyzer.CTA(doc)
	if score != 100 {
		t.Errorf("score = %d, want 100", score)
	}
	if len(details) != 1 {
		t.Errorf("details = %d, want 1", len(details))
	}
}
