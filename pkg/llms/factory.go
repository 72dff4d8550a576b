// Package llms provides the completion backend realizations: Anthropic's
// cloud API, local inference through Ollama, and a scripted double for
// deterministic tests.
package llms

import (
	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// Provider identifies a completion backend implementation.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderScripted  Provider = "scripted"
)

// ProviderConfig carries backend selection and connection settings.
type ProviderConfig struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string

	// Responses seeds the scripted backend; ignored by real providers.
	Responses []string
}

// NewLLM builds a completion backend from configuration.
func NewLLM(cfg ProviderConfig) (core.LLM, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicLLM(cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return NewOllamaLLM(cfg.BaseURL, cfg.Model)
	case ProviderScripted:
		return NewScriptedLLM(cfg.Responses...), nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown completion provider"),
			errors.Fields{"provider": string(cfg.Provider)})
	}
}
