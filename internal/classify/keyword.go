// Package classify implements the rule-based and model-based category
// classifiers.
package classify

import (
	"strings"

	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/model"
)

// KeywordClassifier matches lowercased text against classification keywords
type KeywordClassifier struct {
	rules []labels.Rules
}

// NewKeywordClassifier creates a keyword classifier over the given rule table
func NewKeywordClassifier(ls *labels.LabelSet) *KeywordClassifier {
	return &KeywordClassifier{rules: ls.Rules()}
}

// Classify returns the first category, in rule order, with a keyword that
// occurs in text. text must already be lowercased.
func (k *KeywordClassifier) Classify(text string) (model.Category, bool) {
	for _, r := range k.rules {
		if r.Category == model.CategoryOther {
			continue
		}
		if containsAny(text, r.Keywords) {
			return r.Category, true
		}
	}
	return "", false
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
