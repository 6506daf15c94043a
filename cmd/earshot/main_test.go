package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/MrWong99/earshot/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

type analyzeOutput struct {
	Text       string `json:"text"`
	Original   string `json:"original"`
	Annotation struct {
		Sentiment struct {
			Label string `json:"label"`
		} `json:"sentiment"`
		IsQuestion bool `json:"isQuestion"`
	} `json:"annotation"`
}

func TestAnalyzeCmd_Args(t *testing.T) {
	t.Chdir(t.TempDir())
	cfgPath := writeFile(t, ".", "custom.yaml", "analysis:\n  vocabulary: [Eldrinax]\n")

	out, err := execute(t, "", "analyze", "--config", cfgPath, "elder", "nacks", "lives", "here?")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var res analyzeOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Text != "Eldrinax lives here?" {
		t.Errorf("text = %q, want corrected text", res.Text)
	}
	if !res.Annotation.IsQuestion {
		t.Error("isQuestion = false, want true")
	}
}

func TestAnalyzeCmd_StdinWithDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "I hate this terrible awful day\n", "analyze", "--compact")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Errorf("--compact output spans lines:\n%s", out)
	}
	var res analyzeOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if res.Original != "I hate this terrible awful day" {
		t.Errorf("original = %q", res.Original)
	}
	if res.Annotation.Sentiment.Label != "negative" {
		t.Errorf("label = %q, want negative", res.Annotation.Sentiment.Label)
	}
}

func TestAnalyzeCmd_MissingExplicitConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "", "analyze", "--config", "nope.yaml", "hello")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestAnalyzeCmd_EnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, ".", ".env", "EARSHOT_LOG_LEVEL=loud\n")
	t.Cleanup(func() { os.Unsetenv("EARSHOT_LOG_LEVEL") })

	_, err := execute(t, "", "analyze", "hello")
	if err == nil || !strings.Contains(err.Error(), "server.log_level") {
		t.Errorf("err = %v, want the .env log level to be validated", err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "earshot.yaml", "server:\n  listen_addr: \":9090\"\n  log_level: info\n")
	t.Setenv("EARSHOT_LOG_LEVEL", "debug")

	v := viper.New()
	v.SetEnvPrefix("EARSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.Set(keyConfig, path)
	v.Set(keyListenAddr, ":7070")

	cfg, gotPath, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if gotPath != path {
		t.Errorf("path = %q, want %q", gotPath, path)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("listen_addr = %q, want flag override", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want env override", cfg.Server.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.env", "EARSHOT_TEST_FROM_DOTENV=yes\n")
	t.Cleanup(func() { os.Unsetenv("EARSHOT_TEST_FROM_DOTENV") })

	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file: %v", err)
	}
	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("EARSHOT_TEST_FROM_DOTENV"); got != "yes" {
		t.Errorf("EARSHOT_TEST_FROM_DOTENV = %q, want yes", got)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := slogLevel(tc.in); got != tc.want {
			t.Errorf("slogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// ── reloader ─────────────────────────────────────────────────────────────────

type fakeReloader struct {
	calls []*config.Config
}

func (f *fakeReloader) Reload(cfg *config.Config) error {
	f.calls = append(f.calls, cfg)
	return nil
}

type fakeLimits struct {
	maxBatch, concurrency int
}

func (f *fakeLimits) SetLimits(maxBatch, concurrency int) {
	f.maxBatch, f.concurrency = maxBatch, concurrency
}

func TestReloader_Apply(t *testing.T) {
	t.Parallel()

	svc := &fakeReloader{}
	limits := &fakeLimits{}
	level := new(slog.LevelVar)
	r := &reloader{v: viper.New(), level: level, svc: svc, limits: limits}

	old := config.Default()
	next := config.Default()
	next.Server.LogLevel = config.LogDebug
	next.Analysis.Vocabulary = []string{"Eldrinax"}
	next.Analysis.MaxBatch = 4
	next.Analysis.Concurrency = 2

	r.apply(config.Change{Old: old, New: next})

	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level.Level())
	}
	if len(svc.calls) != 1 || svc.calls[0].Analysis.Vocabulary[0] != "Eldrinax" {
		t.Errorf("Reload calls = %+v", svc.calls)
	}
	if limits.maxBatch != 4 || limits.concurrency != 2 {
		t.Errorf("limits = %+v, want 4/2", limits)
	}
}

func TestReloader_OverrideWins(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(keyLogLevel, "warn")
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	svc := &fakeReloader{}
	r := &reloader{v: v, level: level, svc: svc, limits: &fakeLimits{}}

	next := config.Default()
	next.Server.LogLevel = config.LogDebug
	r.apply(config.Change{Old: config.Default(), New: next})

	if level.Level() != slog.LevelWarn {
		t.Errorf("level = %v, the override must keep warn", level.Level())
	}
	if len(svc.calls) != 0 {
		t.Errorf("analyzer reloaded without analyzer changes")
	}
}

func TestReloader_LexiconEditRebuildsAnalyzer(t *testing.T) {
	t.Parallel()

	svc := &fakeReloader{}
	limits := &fakeLimits{}
	r := &reloader{v: viper.New(), level: new(slog.LevelVar), svc: svc, limits: limits}

	cfg := config.Default()
	cfg.Analysis.LexiconFile = "lexicon.yaml"
	r.apply(config.Change{Old: cfg, New: cfg, LexiconChanged: true})

	if len(svc.calls) != 1 {
		t.Fatalf("Reload calls = %d, want 1", len(svc.calls))
	}
	if limits.maxBatch != 0 {
		t.Error("limits touched without a limits change")
	}
}
