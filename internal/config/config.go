// Package config provides the configuration schema, loader and file watcher
// for the earshot transcript analysis service.
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

// Defaults applied by [Default] and [LoadFromReader] for keys the file omits.
const (
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxBatch       = 64
	DefaultConcurrency    = 8
	DefaultSubject        = "earshot.annotations"
	DefaultServiceName    = "earshot"
	DefaultMetricsPath    = "/metrics"
	DefaultSampleRatio    = 1.0
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// CORSOrigins lists the browser origins allowed to call the API.
	// "*" allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`

	// RequestTimeout bounds every HTTP request except the websocket stream.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AnalysisConfig controls the analyzer and the transcript corrector.
type AnalysisConfig struct {
	// LexiconFile replaces the embedded word lists when set.
	LexiconFile string `yaml:"lexicon_file"`

	// MaxBatch is the largest number of texts accepted by one batch request.
	MaxBatch int `yaml:"max_batch"`

	// Concurrency limits how many texts of a batch are analysed at once.
	Concurrency int `yaml:"concurrency"`

	// Vocabulary lists proper nouns the speech recogniser tends to mishear.
	// Final transcripts are corrected against it before analysis. Empty
	// disables correction.
	Vocabulary []string `yaml:"vocabulary"`
}

// EventsConfig configures publishing of analysis results.
type EventsConfig struct {
	// NATSURL is the NATS server to publish to. Empty disables publishing.
	NATSURL string `yaml:"nats_url"`

	Subject string `yaml:"subject"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	MetricsPath string `yaml:"metrics_path"`

	// SampleRatio is the fraction of incoming requests that start a sampled
	// trace. Requests with a sampled parent are always traced.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns a config with every default applied. It is valid as is.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     DefaultListenAddr,
			LogLevel:       LogInfo,
			CORSOrigins:    []string{"*"},
			RequestTimeout: DefaultRequestTimeout,
		},
		Analysis: AnalysisConfig{
			MaxBatch:    DefaultMaxBatch,
			Concurrency: DefaultConcurrency,
		},
		Events: EventsConfig{
			Subject: DefaultSubject,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
			MetricsPath: DefaultMetricsPath,
			SampleRatio: DefaultSampleRatio,
		},
	}
}
