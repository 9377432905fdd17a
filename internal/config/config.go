// Package config provides the configuration schema, loader, and file watcher
// for the Clausewise document analyser.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel LogLevel       `yaml:"log_level"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Voice    VoiceConfig    `yaml:"voice"`
	Chat     ChatConfig     `yaml:"chat"`
	Extract  ExtractConfig  `yaml:"extract"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	// ListenAddr is the TCP address serving /metrics (e.g., ":9090").
	// Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// AnalysisConfig selects and configures the document-analysis backends.
type AnalysisConfig struct {
	// Provider is the primary backend: "gemini" or "openai".
	Provider string `yaml:"provider"`

	// Fallbacks are tried in order when the primary fails a section after
	// retries.
	Fallbacks []string `yaml:"fallbacks"`

	Gemini BackendConfig `yaml:"gemini"`
	OpenAI BackendConfig `yaml:"openai"`

	Retry RetryConfig `yaml:"retry"`
}

// BackendConfig holds credentials and model selection for one backend.
type BackendConfig struct {
	// APIKey authenticates requests. When empty the backend's standard
	// environment variable is consulted at startup.
	APIKey string `yaml:"api_key"`

	// Model overrides the backend's default model.
	Model string `yaml:"model"`
}

// RetryConfig bounds the per-section retry loop.
type RetryConfig struct {
	// Attempts is the total number of tries per section, including the first.
	Attempts int `yaml:"attempts"`

	// BaseDelay is the initial backoff delay; it doubles per attempt.
	BaseDelay time.Duration `yaml:"base_delay"`
}

// VoiceConfig configures the live voice session.
type VoiceConfig struct {
	// APIKey authenticates the Gemini Live connection.
	APIKey string `yaml:"api_key"`

	// Model overrides the default live model.
	Model string `yaml:"model"`

	// Voice selects the prebuilt voice (e.g., "Kore").
	Voice string `yaml:"voice"`

	// Language is the BCP-47 spoken-language code (e.g., "en-US").
	Language string `yaml:"language"`

	// IdleTimeout forces the session into the error state when no transport
	// event arrives for this long while listening or thinking. Zero disables.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// ChatConfig configures the text chat assistant.
type ChatConfig struct {
	// Provider is the any-llm backend name: "openai", "anthropic", "gemini",
	// "ollama", "mistral", or "groq".
	Provider string `yaml:"provider"`

	// Model is the completion model (e.g., "gemini-2.5-flash").
	Model string `yaml:"model"`

	// APIKey authenticates requests. Empty falls back to the backend's
	// environment variable.
	APIKey string `yaml:"api_key"`
}

// ExtractConfig bounds document extraction.
type ExtractConfig struct {
	// MaxBytes caps the size of an uploaded document. Zero means no limit.
	MaxBytes int64 `yaml:"max_bytes"`
}

// Default values applied by [Validate] when fields are unset.
const (
	DefaultVoice       = "Kore"
	DefaultLanguage    = "en-US"
	DefaultIdleTimeout = 45 * time.Second

	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
)
