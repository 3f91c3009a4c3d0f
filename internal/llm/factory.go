package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/tabsort/internal/model"
)

// NewProvider creates a provider based on configuration.
// An empty provider name disables the model path and returns nil.
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "hf", "huggingface", "inference-server":
		return NewHFProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown model provider: %s (supported: hf, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.ModelConfig to llm.Config.
// A missing timeout falls back to the default.
func ConfigFromModel(modelConfig model.ModelConfig) Config {
	config := DefaultConfig()
	config.Provider = modelConfig.Provider
	config.Model = modelConfig.Model
	config.APIKey = modelConfig.APIKey
	config.BaseURL = modelConfig.BaseURL
	if modelConfig.Timeout > 0 {
		config.Timeout = modelConfig.Timeout
	}
	return config
}

// Namespace identifies a provider and model, for cache keys
func Namespace(config Config) string {
	return strings.ToLower(config.Provider) + "/" + config.Model
}
