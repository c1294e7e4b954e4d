package decompose

import (
	"time"

	"github.com/openinquiry/inquiry/pkg/config"
	"github.com/openinquiry/inquiry/pkg/domain"
)

// FromConfig selects a decomposer implementation based on configuration.
// Unknown providers get the rule-based decomposer.
func FromConfig(cfg config.DecomposerConfig) domain.Decomposer {
	switch cfg.Provider {
	case "ollama":
		timeout, err := time.ParseDuration(cfg.Ollama.Timeout)
		if err != nil {
			timeout = 2 * time.Minute
		}
		return NewOllamaDecomposer(cfg.Ollama.BaseURL, cfg.Ollama.Model, &OllamaOptions{
			Temperature: cfg.Ollama.Temperature,
			MaxTokens:   cfg.Ollama.MaxTokens,
			Timeout:     timeout,
		})
	default:
		return NewRuleBased()
	}
}
