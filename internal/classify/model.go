package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/tabsort/internal/cache"
	"github.com/ppiankov/tabsort/internal/llm"
	"github.com/ppiankov/tabsort/internal/model"
)

// RateLimiter throttles calls to the model capability
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// ModelClassifier picks a category from the probability vector returned by
// the model capability
type ModelClassifier struct {
	provider  llm.Provider
	maxTokens int
	limiter   RateLimiter

	cache     cache.Cache
	cacheTTL  time.Duration
	namespace string
}

// ModelOption configures a ModelClassifier
type ModelOption func(*ModelClassifier)

// WithMaxTokens sets the input truncation length
func WithMaxTokens(n int) ModelOption {
	return func(m *ModelClassifier) {
		if n > 0 {
			m.maxTokens = n
		}
	}
}

// WithLimiter waits on l before every uncached inference
func WithLimiter(l RateLimiter) ModelOption {
	return func(m *ModelClassifier) {
		m.limiter = l
	}
}

// WithCache stores probability vectors in c. namespace should identify the
// provider and model so that switching models does not reuse stale entries.
func WithCache(c cache.Cache, ttl time.Duration, namespace string) ModelOption {
	return func(m *ModelClassifier) {
		m.cache = c
		m.cacheTTL = ttl
		m.namespace = namespace
	}
}

// NewModelClassifier wraps a model capability
func NewModelClassifier(p llm.Provider, opts ...ModelOption) *ModelClassifier {
	m := &ModelClassifier{
		provider:  p,
		maxTokens: model.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Classify returns the argmax category and its probability.
// Ties go to the lowest index.
func (m *ModelClassifier) Classify(ctx context.Context, text string) (model.Category, float64, error) {
	if m == nil || m.provider == nil {
		return "", 0, &InferenceError{Op: "infer", Err: ErrNoProvider}
	}

	input, err := Truncate(text, m.maxTokens)
	if err != nil {
		return "", 0, &InferenceError{Op: "tokenize", Err: err}
	}

	probs, err := m.infer(ctx, input)
	if err != nil {
		return "", 0, err
	}

	idx, confidence := Argmax(probs)
	return model.Categories[idx], confidence, nil
}

func (m *ModelClassifier) infer(ctx context.Context, input string) ([]float64, error) {
	var key string
	if m.cache != nil {
		key = cache.CacheKey(m.namespace, input)
		if data, ok := m.cache.Get(key); ok {
			var probs []float64
			if err := json.Unmarshal(data, &probs); err == nil && validate(probs) == nil {
				return probs, nil
			}
		}
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx, m.provider.Name()); err != nil {
			return nil, &InferenceError{Op: "infer", Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	probs, err := m.provider.Infer(ctx, input, m.maxTokens)
	if err != nil {
		return nil, &InferenceError{Op: "infer", Err: err}
	}
	if err := validate(probs); err != nil {
		return nil, &InferenceError{Op: "decode", Err: err}
	}

	if m.cache != nil {
		if data, err := json.Marshal(probs); err == nil {
			// A cache write failure only costs a future inference
			_ = m.cache.Set(key, data, m.cacheTTL)
		}
	}

	return probs, nil
}

// Truncate keeps the first maxTokens whitespace-delimited tokens of text.
// Text within the limit is returned unchanged.
func Truncate(text string, maxTokens int) (string, error) {
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("input is not valid UTF-8")
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return "", ErrEmptyInput
	}
	if maxTokens <= 0 || len(tokens) <= maxTokens {
		return text, nil
	}
	return strings.Join(tokens[:maxTokens], " "), nil
}

// Argmax returns the index and value of the largest probability
func Argmax(probs []float64) (int, float64) {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best, probs[best]
}

// sumTolerance is how far a distribution may drift from 1 through rounding
const sumTolerance = 1e-3

func validate(probs []float64) error {
	if len(probs) != model.NumCategories {
		return fmt.Errorf("%w: expected %d values, got %d", ErrBadDistribution, model.NumCategories, len(probs))
	}
	sum := 0.0
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return fmt.Errorf("%w: value %v at index %d", ErrBadDistribution, p, i)
		}
		sum += p
	}
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("%w: values sum to %v", ErrBadDistribution, sum)
	}
	return nil
}
