package config

import (
	"testing"
	"time"
)

func TestComputeDiff(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			LogLevel: LogInfo,
			Voice:    VoiceConfig{Voice: "Kore", Language: "en-US", IdleTimeout: 45 * time.Second},
			Analysis: AnalysisConfig{Provider: "gemini"},
		}
	}

	t.Run("no change", func(t *testing.T) {
		t.Parallel()
		d := ComputeDiff(base(), base())
		if d.LogLevelChanged || d.VoiceChanged || d.RestartRequired {
			t.Errorf("ComputeDiff of identical configs = %+v", d)
		}
	})

	t.Run("log level", func(t *testing.T) {
		t.Parallel()
		n := base()
		n.LogLevel = LogDebug
		d := ComputeDiff(base(), n)
		if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
			t.Errorf("diff = %+v, want log level change to debug", d)
		}
		if d.RestartRequired {
			t.Error("log level change should not require restart")
		}
	})

	t.Run("voice settings", func(t *testing.T) {
		t.Parallel()
		n := base()
		n.Voice.Language = "fr-FR"
		if d := ComputeDiff(base(), n); !d.VoiceChanged {
			t.Errorf("diff = %+v, want VoiceChanged", d)
		}
	})

	t.Run("credentials require restart", func(t *testing.T) {
		t.Parallel()
		n := base()
		n.Analysis.Gemini.APIKey = "new-key"
		if d := ComputeDiff(base(), n); !d.RestartRequired {
			t.Errorf("diff = %+v, want RestartRequired", d)
		}
	})

	t.Run("fallback order requires restart", func(t *testing.T) {
		t.Parallel()
		n := base()
		n.Analysis.Fallbacks = []string{"openai"}
		if d := ComputeDiff(base(), n); !d.RestartRequired {
			t.Errorf("diff = %+v, want RestartRequired", d)
		}
	})
}
