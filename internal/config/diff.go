package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only the log level can be hot-reloaded; everything else needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartNeeded is true when any field other than the log level
	// changed. The running process keeps its old behaviour until restarted.
	RestartNeeded bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	restart := old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Telegram != new.Telegram ||
		old.Transcoder != new.Transcoder ||
		old.Retry != new.Retry ||
		old.Breaker != new.Breaker ||
		!pipelineEqual(old.Pipeline, new.Pipeline) ||
		!providersEqual(old.Providers, new.Providers)
	d.RestartNeeded = restart

	return d
}

func pipelineEqual(a, b PipelineConfig) bool {
	if !slices.Equal(a.LanguageOrder, b.LanguageOrder) {
		return false
	}
	return a.TargetLanguage == b.TargetLanguage &&
		a.FetchTimeout == b.FetchTimeout &&
		a.TranscodeTimeout == b.TranscodeTimeout &&
		a.MinDuration == b.MinDuration &&
		a.MinTranscriptChars == b.MinTranscriptChars &&
		a.WorkDir == b.WorkDir
}

func providersEqual(a, b ProvidersConfig) bool {
	if !slices.Equal(a.Order, b.Order) {
		return false
	}
	if a.Translate != b.Translate {
		return false
	}
	if len(a.STT) != len(b.STT) {
		return false
	}
	for name, entry := range a.STT {
		other, ok := b.STT[name]
		if !ok || other != entry {
			return false
		}
	}
	return true
}
