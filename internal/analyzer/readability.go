package analyzer

import (
	"math"
	"regexp"
	"strings"

	"github.com/pagepulse/pagepulse/internal/document"
)

// contentSelectors are tried in priority order to isolate the main content
// from chrome like navigation and footers.
var contentSelectors = []string{
	"main", "article", `[role="main"]`,
	".content", "#content", ".post-content", ".entry-content",
}

// minReadabilitySample is the minimum text length worth scoring.
const minReadabilitySample = 100

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	wordRe          = regexp.MustCompile(`[a-zA-Z]+`)
	vowelGroupRe    = regexp.MustCompile(`[aeiouy]+`)
)

// Readability computes the Flesch Reading Ease of the page's main content,
// clamped to [0, 100]. It returns nil when the sample is too small or has
// no countable sentences or words.
func Readability(doc *document.Document) *int {
	text := contentText(doc)
	if len(text) < minReadabilitySample {
		return nil
	}

	sentences := 0
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}

	words := wordRe.FindAllString(strings.ToLower(text), -1)
	if sentences == 0 || len(words) == 0 {
		return nil
	}

	syllables := 0
	for _, word := range words {
		syllables += countWordSyllables(word)
	}

	avgWordsPerSentence := float64(len(words)) / float64(sentences)
	avgSyllablesPerWord := float64(syllables) / float64(len(words))

	flesch := 206.835 - 1.015*avgWordsPerSentence - 84.6*avgSyllablesPerWord

	score := clampScore(int(math.Round(flesch)))
	return &score
}

// contentText takes the first selector that matches at all; an empty match
// falls back to the whole body rather than trying later selectors.
func contentText(doc *document.Document) string {
	for _, selector := range contentSelectors {
		if els := doc.Find(selector); len(els) > 0 {
			if text := els[0].Text(); text != "" {
				return text
			}
			break
		}
	}
	if body := doc.Find("body"); len(body) > 0 {
		return body[0].Text()
	}
	return ""
}

// countWordSyllables estimates syllables: short words count one; otherwise
// a trailing silent "e" is dropped and vowel-group runs are counted, with a
// minimum of one.
func countWordSyllables(word string) int {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	w := b.String()

	if len(w) <= 3 {
		return 1
	}

	w = strings.TrimSuffix(w, "e")

	count := len(vowelGroupRe.FindAllString(w, -1))
	if count < 1 {
		count = 1
	}
	return count
}
