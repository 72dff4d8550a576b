// Package config loads and validates the module's YAML configuration:
// which completion backend to use, loop tuning knobs, and where the
// playbook snapshot lives.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/llms"
)

// Config is the root configuration document.
type Config struct {
	Provider ProviderConfig `yaml:"provider" validate:"required"`
	Loop     LoopConfig     `yaml:"loop"`
	Playbook PlaybookConfig `yaml:"playbook"`
	LogLevel string         `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
}

// ProviderConfig selects and parameterizes the completion backend.
type ProviderConfig struct {
	Name    string `yaml:"name" validate:"required,oneof=anthropic ollama scripted"`
	Model   string `yaml:"model" validate:"required_unless=Name scripted"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// LoopConfig tunes the adaptation loop.
type LoopConfig struct {
	MaxRetries       int `yaml:"max_retries" validate:"gte=1,lte=10"`
	ReflectionRounds int `yaml:"reflection_rounds" validate:"gte=1,lte=10"`
	ReflectionWindow int `yaml:"reflection_window" validate:"gte=0"`
	Epochs           int `yaml:"epochs" validate:"gte=1"`
}

// PlaybookConfig selects the snapshot persistence backend.
type PlaybookConfig struct {
	Backend string `yaml:"backend" validate:"oneof=json sqlite"`
	Path    string `yaml:"path" validate:"required"`
}

// Default returns a Config with sensible defaults: scripted backend
// disabled knobs at their documented values and a JSON snapshot next to
// the working directory.
func Default() Config {
	return Config{
		Provider: ProviderConfig{Name: "anthropic", Model: "claude-sonnet-4-5"},
		Loop: LoopConfig{
			MaxRetries:       3,
			ReflectionRounds: 1,
			ReflectionWindow: 3,
			Epochs:           1,
		},
		Playbook: PlaybookConfig{Backend: "json", Path: "playbook.json"},
		LogLevel: "INFO",
	}
}

// Load reads a YAML config file, layers it over the defaults, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
			errors.Fields{"path": path})
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path})
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the config against its struct constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}

// ProviderSettings converts the provider section to the llms factory shape.
func (c *Config) ProviderSettings() llms.ProviderConfig {
	return llms.ProviderConfig{
		Provider: llms.Provider(c.Provider.Name),
		Model:    c.Provider.Model,
		APIKey:   c.Provider.APIKey,
		BaseURL:  c.Provider.BaseURL,
	}
}
