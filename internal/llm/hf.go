package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/tabsort/internal/model"
)

// HFProvider calls a text-classification inference server (Hugging Face
// Inference API or a self-hosted sequence classifier with five labels)
type HFProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	TopK       int  `json:"top_k"`
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length,omitempty"`
}

type hfLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHFProvider creates a provider for a text-classification endpoint.
// BaseURL is the full endpoint URL.
func NewHFProvider(config Config) (*HFProvider, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("inference server URL is required (model.base_url)")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HFProvider{
		endpoint: config.BaseURL,
		apiKey:   config.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name returns the provider name
func (p *HFProvider) Name() string {
	return "hf"
}

// Infer posts the text and maps the returned label scores to categories
func (p *HFProvider) Infer(ctx context.Context, text string, maxTokens int) ([]float64, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: text,
		Parameters: hfParameters{
			TopK:       model.NumCategories,
			Truncation: true,
			MaxLength:  maxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	scores, err := decodeLabelScores(respBody)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, model.NumCategories)
	for _, s := range scores {
		idx, ok := labelIndex(s.Label)
		if !ok {
			return nil, fmt.Errorf("unknown label %q", s.Label)
		}
		probs[idx] = s.Score
	}

	return Normalize(probs)
}

// decodeLabelScores accepts both [[{label,score}]] and [{label,score}]
func decodeLabelScores(body []byte) ([]hfLabelScore, error) {
	var nested [][]hfLabelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, fmt.Errorf("empty response")
		}
		return nested[0], nil
	}

	var flat []hfLabelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	return flat, nil
}

// labelIndex maps "learning" or "LABEL_1" to a canonical index
func labelIndex(label string) (int, bool) {
	if c, err := model.ParseCategory(label); err == nil {
		return c.Index(), true
	}

	upper := strings.ToUpper(label)
	if !strings.HasPrefix(upper, "LABEL_") {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(upper, "LABEL_"))
	if err != nil || i < 0 || i >= model.NumCategories {
		return 0, false
	}
	return i, true
}
