package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/earshot/internal/config"
)

// Viper keys. Each is also read from EARSHOT_<KEY> with dashes as
// underscores.
const (
	keyConfig     = "config"
	keyEnvFile    = "env-file"
	keyListenAddr = "listen-addr"
	keyLogLevel   = "log-level"
)

const defaultConfigPath = "earshot.yaml"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EARSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "earshot",
		Short: "Annotate speech transcripts with sentiment, entities and keywords",
		Long: `earshot annotates finalized speech transcripts: sentiment, named entities,
keywords, emotions, statistics, language and whether the text is a question.

Transcripts can be corrected against a vocabulary of known names before they
are analyzed. Results can be published to NATS.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(v.GetString(keyEnvFile))
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", defaultConfigPath, "path to the YAML configuration file")
	flags.String(keyEnvFile, ".env", "dotenv file loaded before the configuration")
	flags.String(keyListenAddr, "", "override server.listen_addr")
	flags.String(keyLogLevel, "", "override server.log_level (debug, info, warn, error)")
	for _, key := range []string{keyConfig, keyEnvFile, keyListenAddr, keyLogLevel} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(newServeCmd(v), newAnalyzeCmd(v))
	return root
}

// loadEnvFile exports the variables in path that are not already set. A
// missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// loadConfig reads the configuration file and applies flag and environment
// overrides. A missing default config file yields the built-in defaults; a
// missing file that was asked for explicitly is an error.
func loadConfig(v *viper.Viper) (cfg *config.Config, path string, err error) {
	path = v.GetString(keyConfig)

	cfg, err = config.Load(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !v.IsSet(keyConfig) && path == defaultConfigPath:
		cfg, path = config.Default(), ""
	case errors.Is(err, fs.ErrNotExist):
		return nil, "", fmt.Errorf("config file %q not found", path)
	default:
		return nil, "", err
	}

	applyOverrides(v, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyOverrides copies flag and environment overrides into cfg.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	if s := v.GetString(keyListenAddr); s != "" {
		cfg.Server.ListenAddr = s
	}
	if s := v.GetString(keyLogLevel); s != "" {
		cfg.Server.LogLevel = config.LogLevel(s)
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printStartupSummary(w io.Writer, cfg *config.Config, path string) {
	if path == "" {
		path = "(built-in defaults)"
	}
	events := cfg.Events.NATSURL
	if events == "" {
		events = "(disabled)"
	}
	lexicon := cfg.Analysis.LexiconFile
	if lexicon == "" {
		lexicon = "(embedded)"
	}
	fmt.Fprintln(w, "earshot "+version)
	fmt.Fprintf(w, "  config      : %s\n", path)
	fmt.Fprintf(w, "  listen addr : %s\n", cfg.Server.ListenAddr)
	fmt.Fprintf(w, "  lexicon     : %s\n", lexicon)
	fmt.Fprintf(w, "  vocabulary  : %d terms\n", len(cfg.Analysis.Vocabulary))
	fmt.Fprintf(w, "  events      : %s\n", events)
	fmt.Fprintf(w, "  metrics     : %s\n", cfg.Telemetry.MetricsPath)
}
