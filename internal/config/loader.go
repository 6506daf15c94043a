package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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
//
// ${VAR} references are expanded from the process environment before the
// YAML is parsed. Keys the document omits keep their [Default] values; an
// empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} with the value of VAR. Bare $VAR is left alone so
// that literal dollar signs survive.
func expandEnv(raw []byte) []byte {
	s := string(raw)
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			break
		}
		b.WriteString(s[:start])
		b.WriteString(os.Getenv(s[start+2 : start+end]))
		s = s[start+end+1:]
	}
	b.WriteString(s)
	return []byte(b.String())
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout %s must not be negative", cfg.Server.RequestTimeout))
	}
	for i, origin := range cfg.Server.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, fmt.Errorf("server.cors_origins[%d] is empty", i))
		}
	}

	// Analysis
	if cfg.Analysis.MaxBatch < 1 {
		errs = append(errs, fmt.Errorf("analysis.max_batch %d must be at least 1", cfg.Analysis.MaxBatch))
	}
	if cfg.Analysis.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("analysis.concurrency %d must be at least 1", cfg.Analysis.Concurrency))
	}
	if cfg.Analysis.Concurrency > cfg.Analysis.MaxBatch && cfg.Analysis.MaxBatch >= 1 {
		slog.Warn("analysis.concurrency exceeds analysis.max_batch; the extra workers are never used",
			"concurrency", cfg.Analysis.Concurrency,
			"max_batch", cfg.Analysis.MaxBatch,
		)
	}
	termsSeen := make(map[string]int, len(cfg.Analysis.Vocabulary))
	for i, term := range cfg.Analysis.Vocabulary {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			errs = append(errs, fmt.Errorf("analysis.vocabulary[%d] is empty", i))
			continue
		}
		if prev, ok := termsSeen[key]; ok {
			errs = append(errs, fmt.Errorf("analysis.vocabulary[%d] %q is a duplicate of analysis.vocabulary[%d]", i, term, prev))
		}
		termsSeen[key] = i
	}

	// Events
	if cfg.Events.NATSURL != "" {
		switch {
		case cfg.Events.Subject == "":
			errs = append(errs, errors.New("events.subject is required when events.nats_url is set"))
		case strings.ContainsAny(cfg.Events.Subject, "*> \t"):
			errs = append(errs, fmt.Errorf("events.subject %q must be a literal subject without wildcards or spaces", cfg.Events.Subject))
		}
	}

	// Telemetry
	if cfg.Telemetry.ServiceName == "" {
		errs = append(errs, errors.New("telemetry.service_name is required"))
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio %v must be between 0 and 1", r))
	}
	if !strings.HasPrefix(cfg.Telemetry.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("telemetry.metrics_path %q must start with /", cfg.Telemetry.MetricsPath))
	}

	return errors.Join(errs...)
}
