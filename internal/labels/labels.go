// Package labels holds the versioned category rule table used by the
// keyword classifier and the auto-categorizer.
package labels

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/tabsort/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules are the matching rules for one category
type Rules struct {
	Category model.Category
	Keywords []string // classification keywords
	Ingest   IngestRules
}

// IngestRules are used when auto-categorizing collected tabs
type IngestRules struct {
	Keywords []string
	URLs     []string // domain substrings
}

// LabelSet is an ordered, validated rule table
type LabelSet struct {
	version int
	rules   []Rules
}

type fileFormat struct {
	Version    int `yaml:"version"`
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
		Ingest   struct {
			Keywords []string `yaml:"keywords"`
			URLs     []string `yaml:"urls"`
		} `yaml:"ingest"`
	} `yaml:"categories"`
}

// Default returns the built-in rule table
func Default() *LabelSet {
	ls, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("labels: built-in rules invalid: %v", err))
	}
	return ls
}

// Load reads a rule table from a YAML file
func Load(path string) (*LabelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	ls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return ls, nil
}

// Parse decodes and validates a rule table
func Parse(data []byte) (*LabelSet, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if f.Version < 1 {
		return nil, fmt.Errorf("rules version must be >= 1, got %d", f.Version)
	}
	if len(f.Categories) != model.NumCategories {
		return nil, fmt.Errorf("expected %d categories, got %d", model.NumCategories, len(f.Categories))
	}

	ls := &LabelSet{version: f.Version}
	seen := make(map[model.Category]bool)

	for _, c := range f.Categories {
		cat, err := model.ParseCategory(c.Name)
		if err != nil {
			return nil, err
		}
		if seen[cat] {
			return nil, fmt.Errorf("category %q declared twice", cat)
		}
		seen[cat] = true

		r := Rules{Category: cat}
		if r.Keywords, err = normalize(c.Keywords); err != nil {
			return nil, fmt.Errorf("%s keywords: %w", cat, err)
		}
		if r.Ingest.Keywords, err = normalize(c.Ingest.Keywords); err != nil {
			return nil, fmt.Errorf("%s ingest keywords: %w", cat, err)
		}
		if r.Ingest.URLs, err = normalize(c.Ingest.URLs); err != nil {
			return nil, fmt.Errorf("%s ingest urls: %w", cat, err)
		}

		// other is the fallback and never matches on its own
		if cat == model.CategoryOther && (len(r.Keywords) > 0 || len(r.Ingest.Keywords) > 0 || len(r.Ingest.URLs) > 0) {
			return nil, fmt.Errorf("category %q must not declare rules", cat)
		}

		ls.rules = append(ls.rules, r)
	}

	return ls, nil
}

func normalize(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return nil, fmt.Errorf("empty entry")
		}
		out = append(out, s)
	}
	return out, nil
}

// Version returns the rule table version
func (ls *LabelSet) Version() int {
	return ls.version
}

// Order returns the categories in tie-break order
func (ls *LabelSet) Order() []model.Category {
	order := make([]model.Category, len(ls.rules))
	for i, r := range ls.rules {
		order[i] = r.Category
	}
	return order
}

// Rules returns the rules in tie-break order
func (ls *LabelSet) Rules() []Rules {
	out := make([]Rules, len(ls.rules))
	copy(out, ls.rules)
	return out
}
