package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AnalyzerChanged is true when the word lists or correction vocabulary
	// changed and the analyzer must be rebuilt.
	AnalyzerChanged bool

	// LimitsChanged is true when max_batch or concurrency changed.
	LimitsChanged bool

	// RestartRequired names keys that changed but only take effect on
	// restart (listener, CORS, events, telemetry).
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Analysis.LexiconFile != new.Analysis.LexiconFile ||
		!slices.Equal(old.Analysis.Vocabulary, new.Analysis.Vocabulary) {
		d.AnalyzerChanged = true
	}

	if old.Analysis.MaxBatch != new.Analysis.MaxBatch ||
		old.Analysis.Concurrency != new.Analysis.Concurrency {
		d.LimitsChanged = true
	}

	restart := func(key string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, key)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("server.cors_origins", !slices.Equal(old.Server.CORSOrigins, new.Server.CORSOrigins))
	restart("server.request_timeout", old.Server.RequestTimeout != new.Server.RequestTimeout)
	restart("events", old.Events != new.Events)
	restart("telemetry", old.Telemetry != new.Telemetry)

	return d
}
