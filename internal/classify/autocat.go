package classify

import (
	"strings"

	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/model"
)

// AutoCategorizer assigns a category to a collected tab using URL domain
// rules and ingest keywords
type AutoCategorizer struct {
	rules []labels.Rules
}

// NewAutoCategorizer creates an auto-categorizer over the given rule table
func NewAutoCategorizer(ls *labels.LabelSet) *AutoCategorizer {
	return &AutoCategorizer{rules: ls.Rules()}
}

// Categorize walks categories in rule order, checking the URL rules and then
// the keyword rules of each category before moving to the next one.
// Falls back to other.
func (a *AutoCategorizer) Categorize(title, url, content string) model.Category {
	lowerURL := strings.ToLower(url)
	text := strings.ToLower(title + " " + content)

	for _, r := range a.rules {
		if containsAny(lowerURL, r.Ingest.URLs) {
			return r.Category
		}
		if containsAny(text, r.Ingest.Keywords) {
			return r.Category
		}
	}

	return model.CategoryOther
}
