package analyzer

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/model"
)

// recommendedSchemaTypes are the structured-data types most pages benefit
// from; missing ones are surfaced in a single advisory entry.
var recommendedSchemaTypes = []string{
	"Organization", "WebSite", "Product", "LocalBusiness", "BreadcrumbList",
}

// maxRecommendedInMessage caps how many missing types the advisory names.
const maxRecommendedInMessage = 3

// SchemaMarkup detects JSON-LD and Microdata structured data. Malformed
// JSON-LD blocks are skipped silently; after detection, recommended types
// not present are appended as one trailing advisory entry.
func SchemaMarkup(doc *document.Document) []model.SchemaEntry {
	entries := []model.SchemaEntry{}

	for _, script := range doc.Find(`script[type="application/ld+json"]`) {
		var data map[string]any
		if err := json.Unmarshal([]byte(script.RawText()), &data); err != nil {
			continue
		}

		if graph, ok := data["@graph"].([]any); ok {
			for _, item := range graph {
				node, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if t, ok := node["@type"].(string); ok {
					entries = append(entries, model.SchemaEntry{
						Type:   t,
						Format: model.SchemaFormatJSONLD,
						Valid:  true,
					})
				}
			}
		} else if t, ok := data["@type"].(string); ok {
			entries = append(entries, model.SchemaEntry{
				Type:   t,
				Format: model.SchemaFormatJSONLD,
				Valid:  true,
			})
		}
	}

	for _, el := range doc.Find("[itemtype]") {
		itemtype := el.AttrOr("itemtype", "")
		if itemtype == "" {
			continue
		}
		if t := lastPathSegment(itemtype); t != "" {
			entries = append(entries, model.SchemaEntry{
				Type:   t,
				Format: model.SchemaFormatMicrodata,
				Valid:  true,
			})
		}
	}

	found := make(map[string]bool, len(entries))
	for _, e := range entries {
		found[e.Type] = true
	}

	missing := []string{}
	for _, t := range recommendedSchemaTypes {
		if !found[t] {
			missing = append(missing, t)
		}
	}

	if len(missing) > 0 {
		named := missing
		if len(named) > maxRecommendedInMessage {
			named = named[:maxRecommendedInMessage]
		}
		entries = append(entries, model.SchemaEntry{
			Type:    "recommendation",
			Message: "Consider adding: " + strings.Join(named, ", "),
			Missing: missing,
		})
	}

	return entries
}

// lastPathSegment returns the final path segment of a schema URL, e.g.
// "Product" from "https://schema.org/Product".
func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return ""
	}
	segment := path.Base(u.Path)
	if segment == "/" || segment == "." {
		return ""
	}
	return segment
}
