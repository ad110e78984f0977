package analyzer

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/model"
)

const (
	// maxSrcLen bounds the src recorded in output; long data URIs would
	// otherwise bloat the stored report.
	maxSrcLen = 100

	// maxDataURILen is the inline-image size above which an external file
	// is suggested.
	maxDataURILen = 10000
)

var legacyImageFormats = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
}

// ImageOptimization flags images with accessibility or loading problems.
// All applicable flags are recorded per image; images with none are omitted
// from the output entirely.
func ImageOptimization(doc *document.Document) []model.ImageIssue {
	out := []model.ImageIssue{}

	for _, img := range doc.Find("img") {
		src := img.AttrOr("src", "")
		alt, altPresent := img.Attr("alt")

		issues := []string{}

		if !altPresent || alt == "" {
			issues = append(issues, "Missing alt attribute")
		}

		if img.AttrOr("width", "") == "" || img.AttrOr("height", "") == "" {
			issues = append(issues, "Missing width/height attributes (causes layout shift)")
		}

		if img.AttrOr("loading", "") == "" {
			issues = append(issues, `Consider adding loading="lazy" for below-fold images`)
		}

		if ext := imageExtension(src); legacyImageFormats[ext] {
			issues = append(issues, fmt.Sprintf("Consider using modern format (WebP/AVIF) instead of %s", ext))
		}

		if strings.HasPrefix(src, "data:") && len(src) > maxDataURILen {
			issues = append(issues, "Large data URI detected - consider external file")
		}

		if len(issues) == 0 {
			continue
		}

		record := model.ImageIssue{
			Src:    truncate(src, maxSrcLen),
			Issues: issues,
		}
		if altPresent {
			a := alt
			record.Alt = &a
		}
		out = append(out, record)
	}

	return out
}

// imageExtension extracts the lowercased file extension from the URL path,
// without the dot. Unparseable sources yield "".
func imageExtension(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
