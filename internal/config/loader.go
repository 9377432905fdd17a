package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validAnalysisProviders lists known analysis backend names.
var validAnalysisProviders = []string{"gemini", "openai"}

// validChatProviders lists known chat backend names.
var validChatProviders = []string{"openai", "anthropic", "gemini", "ollama", "mistral", "groq"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for unset fields. It returns a joined error listing all hard
// validation failures; mere configuration smells are only logged.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Analysis backends
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = "gemini"
	}
	if !slices.Contains(validAnalysisProviders, cfg.Analysis.Provider) {
		errs = append(errs, fmt.Errorf("analysis.provider %q is unknown; valid values: %v", cfg.Analysis.Provider, validAnalysisProviders))
	}
	for _, fb := range cfg.Analysis.Fallbacks {
		if !slices.Contains(validAnalysisProviders, fb) {
			errs = append(errs, fmt.Errorf("analysis.fallbacks entry %q is unknown; valid values: %v", fb, validAnalysisProviders))
		}
		if fb == cfg.Analysis.Provider {
			slog.Warn("analysis fallback repeats the primary provider", "provider", fb)
		}
	}

	if cfg.Analysis.Retry.Attempts <= 0 {
		cfg.Analysis.Retry.Attempts = DefaultRetryAttempts
	}
	if cfg.Analysis.Retry.BaseDelay <= 0 {
		cfg.Analysis.Retry.BaseDelay = DefaultRetryBaseDelay
	}

	// Voice session
	if cfg.Voice.Voice == "" {
		cfg.Voice.Voice = DefaultVoice
	}
	if cfg.Voice.Language == "" {
		cfg.Voice.Language = DefaultLanguage
	}
	if cfg.Voice.IdleTimeout == 0 {
		cfg.Voice.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Voice.IdleTimeout < 0 {
		// Negative means explicitly disabled.
		cfg.Voice.IdleTimeout = 0
	}

	// Chat assistant
	if cfg.Chat.Provider != "" && !slices.Contains(validChatProviders, cfg.Chat.Provider) {
		errs = append(errs, fmt.Errorf("chat.provider %q is unknown; valid values: %v", cfg.Chat.Provider, validChatProviders))
	}
	if cfg.Chat.Provider != "" && cfg.Chat.Model == "" {
		errs = append(errs, fmt.Errorf("chat.provider is set but chat.model is empty"))
	}

	if cfg.Extract.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("extract.max_bytes must not be negative"))
	}

	return errors.Join(errs...)
}
