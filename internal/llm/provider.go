package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/tabsort/internal/model"
)

// Provider is the model capability consumed by the classifier: given text,
// return a probability distribution over model.Categories (same order).
type Provider interface {
	// Name returns the provider name
	Name() string

	// Infer classifies text, truncated by the caller to at most maxTokens tokens
	Infer(ctx context.Context, text string, maxTokens int) ([]float64, error)
}

// Config holds provider configuration
type Config struct {
	// Provider name: "hf", "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for a single inference request
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "", // Disabled by default
		Timeout:  30 * time.Second,
	}
}

const systemPrompt = "You are a browser tab classifier. You answer with JSON only."

// BuildPrompt asks a chat model for a probability per category
func BuildPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Classify the following browser tab text into exactly one of these categories:\n")
	for _, c := range model.Categories {
		sb.WriteString("- ")
		sb.WriteString(string(c))
		sb.WriteString("\n")
	}
	sb.WriteString("\nText:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(`Return a JSON object mapping every category to a probability between 0 and 1.
The probabilities must sum to 1. Example:
{"work": 0.1, "learning": 0.6, "entertainment": 0.1, "social": 0.1, "other": 0.1}

Return ONLY the JSON, no other text.`)

	return sb.String()
}

// ParseDistribution decodes a chat model answer into a probability vector in
// canonical category order. Code fences and a wrapping "probabilities"
// object are tolerated; the vector is normalized to sum to 1.
func ParseDistribution(resp string) ([]float64, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}
	if inner, ok := raw["probabilities"]; ok {
		raw = nil
		if err := json.Unmarshal(inner, &raw); err != nil {
			return nil, fmt.Errorf("parse probabilities: %w", err)
		}
	}

	probs := make([]float64, model.NumCategories)
	for key, val := range raw {
		c, err := model.ParseCategory(key)
		if err != nil {
			continue
		}
		var p float64
		if err := json.Unmarshal(val, &p); err != nil {
			return nil, fmt.Errorf("probability for %s: %w", c, err)
		}
		probs[c.Index()] = p
	}

	return Normalize(probs)
}

// Normalize scales non-negative scores so they sum to 1
func Normalize(scores []float64) ([]float64, error) {
	sum := 0.0
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return nil, fmt.Errorf("invalid score %v at index %d", s, i)
		}
		sum += s
	}
	if sum == 0 {
		return nil, fmt.Errorf("all scores are zero")
	}

	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s / sum
	}
	return out, nil
}
