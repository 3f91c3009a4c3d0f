package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tabsort/internal/classify"
	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/model"
)

// stubProvider implements llm.Provider
type stubProvider struct {
	probs []float64
	err   error
	panic bool
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Infer(ctx context.Context, text string, maxTokens int) ([]float64, error) {
	s.calls++
	if s.panic {
		panic("model exploded")
	}
	return s.probs, s.err
}

func newPipeline(p *stubProvider, opts ...Option) *Pipeline {
	return New(labels.Default(), classify.NewModelClassifier(p), opts...)
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		provider  *stubProvider
		want      model.ClassificationResult
		wantCalls int
	}{
		{
			name:     "keyword hit",
			text:     "Quarterly Business Review",
			provider: &stubProvider{},
			want: model.ClassificationResult{
				Category:        model.CategoryWork,
				ImportanceScore: KeywordImportance,
				Method:          model.MethodKeyword,
				Status:          model.StatusSuccess,
			},
		},
		{
			name:     "uppercase keyword",
			text:     "LIVE MUSIC STREAM",
			provider: &stubProvider{},
			want: model.ClassificationResult{
				Category:        model.CategoryEntertainment,
				ImportanceScore: KeywordImportance,
				Method:          model.MethodKeyword,
				Status:          model.StatusSuccess,
			},
		},
		{
			name:     "model fallback",
			text:     "random unrelated words",
			provider: &stubProvider{probs: []float64{0.1, 0.2, 0.05, 0.6, 0.05}},
			want: model.ClassificationResult{
				Category:        model.CategorySocial,
				ImportanceScore: 0.6,
				Method:          model.MethodModel,
				Status:          model.StatusSuccess,
			},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newPipeline(tt.provider).Analyze(context.Background(), tt.text)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
			if tt.provider.calls != tt.wantCalls {
				t.Errorf("expected %d inference calls, got %d", tt.wantCalls, tt.provider.calls)
			}
		})
	}
}

func TestAnalyze_ModelFailure(t *testing.T) {
	var logged []string
	logger := func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	provider := &stubProvider{err: errors.New("connection refused")}
	got := newPipeline(provider, WithLogger(logger)).Analyze(context.Background(), "random unrelated words")

	if got.Status != model.StatusError {
		t.Fatalf("expected error status, got %+v", got)
	}
	if !strings.Contains(got.Error, "connection refused") {
		t.Errorf("expected provider error in message, got %q", got.Error)
	}
	if got.Category != "" || got.Method != "" || got.ImportanceScore != 0 {
		t.Errorf("error result should carry no classification: %+v", got)
	}
	if provider.calls != 1 {
		t.Errorf("expected exactly one inference attempt, got %d", provider.calls)
	}
	if len(logged) != 1 {
		t.Errorf("expected one log line, got %v", logged)
	}
}

func TestAnalyze_RecoversPanic(t *testing.T) {
	got := newPipeline(&stubProvider{panic: true}).Analyze(context.Background(), "random unrelated words")
	if got.Status != model.StatusError {
		t.Fatalf("expected error status, got %+v", got)
	}
	if !strings.Contains(got.Error, "model exploded") {
		t.Errorf("expected panic value in message, got %q", got.Error)
	}
}

func TestAnalyze_NoModel(t *testing.T) {
	p := New(labels.Default(), nil)

	if got := p.Analyze(context.Background(), "my inbox email"); !got.OK() {
		t.Errorf("keyword path should work without a model: %+v", got)
	}

	got := p.Analyze(context.Background(), "random unrelated words")
	if got.OK() || !strings.Contains(got.Error, classify.ErrNoProvider.Error()) {
		t.Errorf("expected no provider error, got %+v", got)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	provider := &stubProvider{probs: []float64{1, 0, 0, 0, 0}}
	got := newPipeline(provider).Analyze(context.Background(), "   ")
	if got.OK() {
		t.Errorf("expected error for blank text, got %+v", got)
	}
	if provider.calls != 0 {
		t.Errorf("blank text must not reach the model, got %d calls", provider.calls)
	}
}

func TestHealth(t *testing.T) {
	healthy := newPipeline(&stubProvider{probs: []float64{0.2, 0.2, 0.2, 0.2, 0.2}}).Health(context.Background())
	if healthy.Status != model.HealthHealthy || healthy.ModelStatus != "ready" || healthy.Error != "" {
		t.Errorf("unexpected healthy status: %+v", healthy)
	}

	unhealthy := newPipeline(&stubProvider{err: errors.New("down")}).Health(context.Background())
	if unhealthy.Status != model.HealthUnhealthy || unhealthy.ModelStatus != "error" {
		t.Errorf("unexpected unhealthy status: %+v", unhealthy)
	}
	if !strings.Contains(unhealthy.Error, "down") {
		t.Errorf("expected error detail, got %q", unhealthy.Error)
	}

	disabled := New(labels.Default(), nil).Health(context.Background())
	if disabled.Status != model.HealthUnhealthy || disabled.ModelStatus != model.ModelDisabled {
		t.Errorf("unexpected status without provider: %+v", disabled)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false

	p, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if p.model != nil {
		t.Error("expected model stage disabled without a provider")
	}

	cfg.Model.Provider = "nonsense"
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg.Model.Provider = ""
	cfg.Rules.Path = "/nonexistent/rules.yaml"
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("expected error for missing rules file")
	}
}

func TestNewFromConfig_WithProvider(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Model.Provider = "ollama"
	cfg.Model.Model = "llama3"
	cfg.Model.BaseURL = "http://127.0.0.1:1"
	cfg.Model.Timeout = time.Second

	p, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if p.model == nil {
		t.Error("expected model stage enabled")
	}
}
