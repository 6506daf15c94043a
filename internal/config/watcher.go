package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Change describes one accepted reload.
type Change struct {
	Old, New *Config

	// LexiconChanged is set when the lexicon file referenced by New differs
	// from the one last loaded, even if the config file itself is unchanged.
	LexiconChanged bool
}

// Watcher polls a config file, and the lexicon file it references, and
// calls onChange when either changes. A config that fails to load or
// validate is logged and skipped; the last good one stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(Change)
	log      *slog.Logger

	mu      sync.Mutex
	current *Config
	state   fingerprint

	done     chan struct{}
	stopOnce sync.Once
}

// fingerprint identifies the watched files' contents. Modification times
// gate the hashing so an idle poll only stats.
type fingerprint struct {
	cfgMtime, lexMtime time.Time
	cfgHash, lexHash   [sha256.Size]byte
	lexPath            string
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher loads the config at path and starts polling. Call
// [Watcher.Stop] to end polling.
func NewWatcher(path string, onChange func(Change), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		log:      slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, fp, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.state = cfg, fp

	go w.poll()
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	w.mu.Lock()
	prev := w.state
	w.mu.Unlock()

	if !w.touched(prev) {
		return
	}

	cfg, fp, err := w.load()
	if err != nil {
		w.log.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	cfgChanged := fp.cfgHash != w.state.cfgHash
	lexChanged := fp.lexPath == w.state.lexPath && fp.lexHash != w.state.lexHash
	old := w.current
	if cfgChanged {
		w.current = cfg
	}
	w.state = fp
	w.mu.Unlock()

	if !cfgChanged && !lexChanged {
		return
	}
	w.log.Info("config watcher: configuration reloaded",
		"path", w.path,
		"lexicon_changed", lexChanged,
	)
	if w.onChange != nil {
		w.onChange(Change{Old: old, New: w.Current(), LexiconChanged: lexChanged})
	}
}

// touched reports whether either file's mtime moved since fp was taken.
func (w *Watcher) touched(fp fingerprint) bool {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return false
	}
	if !info.ModTime().Equal(fp.cfgMtime) {
		return true
	}
	if fp.lexPath == "" {
		return false
	}
	info, err = os.Stat(fp.lexPath)
	if err != nil {
		w.log.Warn("config watcher: cannot stat lexicon", "path", fp.lexPath, "err", err)
		return false
	}
	return !info.ModTime().Equal(fp.lexMtime)
}

func (w *Watcher) load() (*Config, fingerprint, error) {
	var fp fingerprint

	data, mtime, err := readStamped(w.path)
	if err != nil {
		return nil, fp, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fp, err
	}
	fp.cfgHash, fp.cfgMtime = sha256.Sum256(data), mtime

	if p := cfg.Analysis.LexiconFile; p != "" {
		lex, lexMtime, err := readStamped(p)
		if err != nil {
			return nil, fp, fmt.Errorf("lexicon: %w", err)
		}
		fp.lexPath, fp.lexHash, fp.lexMtime = p, sha256.Sum256(lex), lexMtime
	}
	return cfg, fp, nil
}

// readStamped reads path and returns its content with the mtime observed
// before reading.
func readStamped(path string) ([]byte, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}
