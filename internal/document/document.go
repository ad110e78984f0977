// Package document wraps raw HTML into a parsed, queryable tree. It is the
// only package that touches the HTML parser; the heuristic analyzers work
// against Document and Element so they can be tested on small fixtures.
package document

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Document is a best-effort parse of an HTML page. Malformed markup is
// recovered rather than rejected; Parse fails only when the input cannot be
// tokenized at all.
type Document struct {
	doc *goquery.Document
	raw string
}

// Parse builds a Document from raw HTML.
func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc, raw: html}, nil
}

// Raw returns the unparsed HTML source.
func (d *Document) Raw() string {
	return d.raw
}

// Find returns all elements matching the CSS selector, in document order.
// Unknown selectors and invalid selector syntax yield an empty result,
// never an error.
func (d *Document) Find(selector string) []*Element {
	return matchAll(d.doc.Selection, selector)
}

// Element is one node of the parsed tree.
type Element struct {
	sel *goquery.Selection
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return goquery.NodeName(e.sel)
}

// Attr returns an attribute value and whether the attribute is present.
func (e *Element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// AttrOr returns the attribute value, or def when absent.
func (e *Element) AttrOr(name, def string) string {
	return e.sel.AttrOr(name, def)
}

// Text returns the subtree text with whitespace collapsed to single spaces
// and surrounding whitespace trimmed.
func (e *Element) Text() string {
	return strings.Join(strings.Fields(e.sel.Text()), " ")
}

// RawText returns the subtree text exactly as written, without whitespace
// normalization. Needed for script payloads where whitespace is data.
func (e *Element) RawText() string {
	return e.sel.Text()
}

// Find returns matching descendants of this element, in document order.
func (e *Element) Find(selector string) []*Element {
	return matchAll(e.sel, selector)
}

func matchAll(root *goquery.Selection, selector string) []*Element {
	// Compile instead of goquery's Find so a bad selector degrades to an
	// empty match rather than a panic.
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}

	var out []*Element
	root.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{sel: s})
	})
	return out
}
