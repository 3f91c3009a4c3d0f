// Package pipeline classifies tab text: keyword rules first, the model
// capability only when no rule matches.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/tabsort/internal/cache"
	"github.com/ppiankov/tabsort/internal/classify"
	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/llm"
	"github.com/ppiankov/tabsort/internal/model"
	"github.com/ppiankov/tabsort/internal/worker"
)

// KeywordImportance is the importance score reported for keyword matches
const KeywordImportance = 0.85

// healthProbe is the canary text classified by Health
const healthProbe = "test"

// Logger receives analysis errors. Nil means silent.
type Logger func(format string, args ...any)

// Pipeline orchestrates the two classification stages
type Pipeline struct {
	keyword *classify.KeywordClassifier
	model   *classify.ModelClassifier
	logf    Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the error log hook
func WithLogger(l Logger) Option {
	return func(p *Pipeline) {
		p.logf = l
	}
}

// New creates a pipeline from a rule table and an optional model classifier.
// A nil model classifier disables the fallback stage.
func New(ls *labels.LabelSet, mc *classify.ModelClassifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		keyword: classify.NewKeywordClassifier(ls),
		model:   mc,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig wires rules, provider, cache and rate limiter from cfg
func NewFromConfig(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	ls := labels.Default()
	if cfg.Rules.Path != "" {
		loaded, err := labels.Load(cfg.Rules.Path)
		if err != nil {
			return nil, err
		}
		ls = loaded
	}

	llmConfig := llm.ConfigFromModel(cfg.Model)
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}

	var mc *classify.ModelClassifier
	if provider != nil {
		modelOpts := []classify.ModelOption{
			classify.WithMaxTokens(cfg.Model.MaxTokens),
			classify.WithLimiter(worker.NewLimiter(cfg.Model.RequestsPerSecond, cfg.Model.Burst)),
		}
		if c := cache.New(cfg.Cache); c != nil {
			modelOpts = append(modelOpts, classify.WithCache(c, cfg.Cache.MemoryTTL, llm.Namespace(llmConfig)))
		}
		mc = classify.NewModelClassifier(provider, modelOpts...)
	}

	return New(ls, mc, opts...), nil
}

// Analyze classifies text. It never returns an error: failures, including
// panics raised by the model capability, become an error result.
func (p *Pipeline) Analyze(ctx context.Context, text string) (result model.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = p.failure(fmt.Errorf("panic: %v", r))
		}
	}()

	if category, ok := p.keyword.Classify(strings.ToLower(text)); ok {
		return model.ClassificationResult{
			Category:        category,
			ImportanceScore: KeywordImportance,
			Method:          model.MethodKeyword,
			Status:          model.StatusSuccess,
		}
	}

	category, confidence, err := p.model.Classify(ctx, text)
	if err != nil {
		return p.failure(err)
	}

	return model.ClassificationResult{
		Category:        category,
		ImportanceScore: confidence,
		Method:          model.MethodModel,
		Status:          model.StatusSuccess,
	}
}

// Health runs a canary classification. The canary needs the model path, so
// a pipeline without a provider is unhealthy with model status "disabled".
func (p *Pipeline) Health(ctx context.Context) model.HealthStatus {
	result := p.Analyze(ctx, healthProbe)
	if !result.OK() {
		modelStatus := model.ModelError
		if p.model == nil {
			modelStatus = model.ModelDisabled
		}
		return model.HealthStatus{
			Status:      model.HealthUnhealthy,
			ModelStatus: modelStatus,
			Error:       result.Error,
		}
	}
	return model.HealthStatus{
		Status:      model.HealthHealthy,
		ModelStatus: model.ModelReady,
	}
}

func (p *Pipeline) failure(err error) model.ClassificationResult {
	if p.logf != nil {
		p.logf("Error analyzing text: %v", err)
	}
	return model.ClassificationResult{
		Status: model.StatusError,
		Error:  err.Error(),
	}
}
