package config

import "slices"

// Diff describes what changed between two configs. Only fields that can be
// applied without restarting in-flight work are tracked; everything else
// requires a restart and is reported under RestartRequired.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VoiceChanged means the voice, language, or idle timeout changed. The
	// new values apply to the next opened session; an open session keeps the
	// settings it started with.
	VoiceChanged bool

	// RestartRequired means credentials or backend selection changed.
	RestartRequired bool
}

// ComputeDiff compares old and new configs and returns what changed.
func ComputeDiff(old, new *Config) Diff {
	d := Diff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Voice.Voice != new.Voice.Voice ||
		old.Voice.Language != new.Voice.Language ||
		old.Voice.IdleTimeout != new.Voice.IdleTimeout {
		d.VoiceChanged = true
	}

	if old.Analysis.Provider != new.Analysis.Provider ||
		!slices.Equal(old.Analysis.Fallbacks, new.Analysis.Fallbacks) ||
		old.Analysis.Gemini != new.Analysis.Gemini ||
		old.Analysis.OpenAI != new.Analysis.OpenAI ||
		old.Voice.APIKey != new.Voice.APIKey ||
		old.Voice.Model != new.Voice.Model ||
		old.Chat != new.Chat {
		d.RestartRequired = true
	}

	return d
}
