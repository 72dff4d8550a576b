// Package core defines the completion capability consumed by the roles and
// the adaptation loop. Backends are free-standing implementations of the LLM
// interface selected by configuration, not subclassing.
package core

import (
	"context"
)

// TokenInfo reports token usage for a single completion.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is the result of one completion call.
type LLMResponse struct {
	Content  string
	Usage    *TokenInfo
	Metadata map[string]interface{}
}

// LLM is the single capability this module consumes: produce text from a
// prompt, possibly failing with a provider error. Provider errors are
// propagated to the caller unchanged; only malformed output is retried, and
// that retry lives in the roles package, not here.
type LLM interface {
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	ProviderName() string
	ModelID() string
}

// GenerateOption represents an option for text generation.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds configuration for text generation.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// NewGenerateOptions creates a new GenerateOptions with default values.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   8192,
		Temperature: 0.5,
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithStopSequences sets the stop sequences.
func WithStopSequences(sequences ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Stop = sequences
	}
}

// EndpointConfig describes how to reach an HTTP-based backend.
type EndpointConfig struct {
	BaseURL    string
	Path       string
	Headers    map[string]string
	TimeoutSec int
}

// BaseLLM carries the provider identity shared by all backends.
type BaseLLM struct {
	provider string
	modelID  string
	endpoint *EndpointConfig
}

// NewBaseLLM creates the shared identity for a backend implementation.
func NewBaseLLM(provider, modelID string, endpoint *EndpointConfig) *BaseLLM {
	return &BaseLLM{
		provider: provider,
		modelID:  modelID,
		endpoint: endpoint,
	}
}

func (b *BaseLLM) ProviderName() string { return b.provider }

func (b *BaseLLM) ModelID() string { return b.modelID }

// Endpoint returns the backend endpoint configuration, which may be nil for
// SDK-managed backends.
func (b *BaseLLM) Endpoint() *EndpointConfig { return b.endpoint }
