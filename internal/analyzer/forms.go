package analyzer

import (
	"fmt"
	"strings"

	"github.com/pagepulse/pagepulse/internal/document"
	"github.com/pagepulse/pagepulse/internal/model"
)

// Visible, user-editable fields only; hidden and submit inputs carry no
// friction.
const formFieldSelector = `input:not([type="hidden"]):not([type="submit"]), textarea, select`

// maxComfortableFields is the field count beyond which a form is penalized.
const maxComfortableFields = 5

// autocompleteNames are the name-attribute keywords that should carry an
// autocomplete hint. Checked once per field, first match only.
var autocompleteNames = []string{"email", "name", "phone", "address", "city", "zip", "postal"}

type formAccum struct {
	score   int
	details []model.FormDetail
}

// FormFriction scores how burdensome the page's forms are. A single running
// score starting at 100 is shared across every form on the page.
func FormFriction(doc *document.Document) (int, []model.FormDetail) {
	acc := formAccum{score: 100, details: []model.FormDetail{}}
	for _, form := range doc.Find("form") {
		acc = scoreForm(acc, doc, form)
	}
	return clampScore(acc.score), acc.details
}

func scoreForm(acc formAccum, doc *document.Document, form *document.Element) formAccum {
	detail := model.FormDetail{
		Action: form.AttrOr("action", ""),
		Method: form.AttrOr("method", "get"),
		Inputs: []model.FormInput{},
		Issues: []string{},
	}

	fields := form.Find(formFieldSelector)
	if len(fields) > maxComfortableFields {
		detail.Issues = append(detail.Issues, fmt.Sprintf("High field count (%d fields)", len(fields)))
		acc.score -= (len(fields) - maxComfortableFields) * 3
	}

	for _, field := range fields {
		input, penalty := scoreFormField(doc, field)
		detail.Inputs = append(detail.Inputs, input)
		acc.score -= penalty
	}

	if strings.HasPrefix(detail.Action, "http://") {
		detail.Issues = append(detail.Issues, "Form submits over insecure HTTP")
		acc.score -= 20
	}

	acc.details = append(acc.details, detail)
	return acc
}

func scoreFormField(doc *document.Document, field *document.Element) (model.FormInput, int) {
	_, required := field.Attr("required")
	input := model.FormInput{
		Name:     field.AttrOr("name", ""),
		Type:     fieldType(field),
		Required: required,
		Issues:   []string{},
	}
	penalty := 0

	hasLabel := false
	if id := field.AttrOr("id", ""); id != "" {
		hasLabel = len(doc.Find(fmt.Sprintf(`label[for=%q]`, id))) > 0
	}
	if !hasLabel && field.AttrOr("placeholder", "") == "" && field.AttrOr("aria-label", "") == "" {
		input.Issues = append(input.Issues, "Missing label or accessible name")
		penalty += 5
	}

	if field.AttrOr("autocomplete", "") == "" {
		name := strings.ToLower(input.Name)
		for _, keyword := range autocompleteNames {
			if strings.Contains(name, keyword) {
				input.Issues = append(input.Issues, "Missing autocomplete attribute")
				penalty += 3
				break
			}
		}
	}

	return input, penalty
}

func fieldType(field *document.Element) string {
	if t, ok := field.Attr("type"); ok {
		return t
	}
	return field.Tag()
}
