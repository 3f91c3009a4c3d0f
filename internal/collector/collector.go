// Package collector records labeled tab observations for later training.
//
// A Collector is not safe for concurrent use; callers that share one
// (such as the HTTP server) must serialize access.
package collector

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/tabsort/internal/classify"
	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/model"
	"github.com/ppiankov/tabsort/internal/store"
)

// Collector owns the in-memory dataset and mirrors every mutation to a store
type Collector struct {
	store     store.Store
	autocat   *classify.AutoCategorizer
	now       func() time.Time
	dataset   []model.Observation
	recovered bool
}

// Option configures a Collector
type Option func(*Collector)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// New loads the dataset from s
func New(s store.Store, ls *labels.LabelSet, opts ...Option) (*Collector, error) {
	c := &Collector{
		store:   s,
		autocat: classify.NewAutoCategorizer(ls),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	snap, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	c.dataset = snap.Observations
	if c.dataset == nil {
		c.dataset = []model.Observation{}
	}
	c.recovered = snap.Recovered

	return c, nil
}

// Recovered reports whether the stored dataset was unreadable at load time
// and replaced by an empty one
func (c *Collector) Recovered() bool {
	return c.recovered
}

// Add validates, labels and persists one observation. Nothing is recorded
// when validation or persistence fails.
func (c *Collector) Add(title, url, content string, category model.Category) (model.Observation, error) {
	if strings.TrimSpace(title) == "" {
		return model.Observation{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if strings.TrimSpace(url) == "" {
		return model.Observation{}, &ValidationError{Field: "url", Reason: "is required"}
	}

	content = truncateRunes(content, model.MaxContentChars)

	if category == "" {
		category = c.autocat.Categorize(title, url, content)
	} else {
		parsed, err := model.ParseCategory(string(category))
		if err != nil {
			return model.Observation{}, &ValidationError{Field: "category", Reason: err.Error()}
		}
		category = parsed
	}

	obs := model.Observation{
		Title:     title,
		URL:       url,
		Content:   content,
		Category:  category,
		Timestamp: c.now().Format(time.RFC3339Nano),
	}

	if err := c.store.Append(obs); err != nil {
		return model.Observation{}, fmt.Errorf("persist observation: %w", err)
	}
	c.dataset = append(c.dataset, obs)

	return obs, nil
}

// TrainingData projects every observation into a text/label pair
func (c *Collector) TrainingData() []model.TrainingExample {
	out := make([]model.TrainingExample, len(c.dataset))
	for i, o := range c.dataset {
		out[i] = model.TrainingExample{
			Text:  o.Title + " - " + o.Content,
			Label: o.Category,
		}
	}
	return out
}

// Statistics returns the category histogram and the latest timestamp.
// Timestamps that cannot be parsed are counted but never chosen as latest.
func (c *Collector) Statistics() model.Statistics {
	stats := model.Statistics{
		Total:      len(c.dataset),
		Categories: make(map[model.Category]int),
	}

	var latest time.Time
	for _, o := range c.dataset {
		stats.Categories[o.Category]++

		ts, err := ParseTimestamp(o.Timestamp)
		if err != nil {
			continue
		}
		if stats.LatestUpdate == nil || ts.After(latest) {
			latest = ts
			raw := o.Timestamp
			stats.LatestUpdate = &raw
		}
	}

	return stats
}

// Observations returns a copy of the dataset
func (c *Collector) Observations() []model.Observation {
	out := make([]model.Observation, len(c.dataset))
	copy(out, c.dataset)
	return out
}

// Len returns the number of observations
func (c *Collector) Len() int {
	return len(c.dataset)
}

// Remove deletes the observation at index. Out of range is a no-op
// reported as false.
func (c *Collector) Remove(index int) (bool, error) {
	if index < 0 || index >= len(c.dataset) {
		return false, nil
	}

	next := make([]model.Observation, 0, len(c.dataset)-1)
	next = append(next, c.dataset[:index]...)
	next = append(next, c.dataset[index+1:]...)

	if err := c.store.ReplaceAll(next); err != nil {
		return false, fmt.Errorf("persist removal: %w", err)
	}
	c.dataset = next
	return true, nil
}

// Update merges the set fields of u into the observation at index.
// Values are stored as given. Out of range is a no-op reported as false.
func (c *Collector) Update(index int, u model.ObservationUpdate) (bool, error) {
	if index < 0 || index >= len(c.dataset) {
		return false, nil
	}

	next := c.Observations()
	u.Apply(&next[index])

	if err := c.store.ReplaceAll(next); err != nil {
		return false, fmt.Errorf("persist update: %w", err)
	}
	c.dataset = next
	return true, nil
}

// Clear empties the dataset
func (c *Collector) Clear() error {
	if err := c.store.ReplaceAll([]model.Observation{}); err != nil {
		return fmt.Errorf("persist clear: %w", err)
	}
	c.dataset = []model.Observation{}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
