// Package service ties the transcript corrector, the text analyzer, event
// publishing and metrics into the single operation every transport calls.
//
// The analyzer and corrector are held behind atomic pointers so [Service.Reload]
// can swap them while requests are in flight. Readers never lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/earshot/internal/config"
	"github.com/MrWong99/earshot/internal/observe"
	"github.com/MrWong99/earshot/internal/transcript"
	"github.com/MrWong99/earshot/pkg/textanalysis"
)

// Publisher delivers analysis results to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, r *Result) error
	Close() error
}

// Service runs the correct, analyze, publish pipeline. It is safe for
// concurrent use.
type Service struct {
	analyzer  atomic.Pointer[textanalysis.Analyzer]
	corrector atomic.Pointer[transcript.VocabularyCorrector]

	publisher Publisher
	subject   string
	metrics   *observe.Metrics
	log       *slog.Logger
	now       func() time.Time

	closeOnce sync.Once
}

// Option configures a [Service].
type Option func(*Service)

// WithPublisher sets where results are published. Without it results are
// not published.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the time source used for [Result.CreatedAt].
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds the analyzer and corrector described by cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		subject: cfg.Events.Subject,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the analyzer from cfg.Analysis.LexiconFile (the embedded
// lexicon when empty) and the corrector from cfg.Analysis.Vocabulary, then
// swaps both in. On error the current pair stays in place.
func (s *Service) Reload(cfg *config.Config) error {
	a, err := buildAnalyzer(cfg.Analysis.LexiconFile)
	if err != nil {
		return fmt.Errorf("service: build analyzer: %w", err)
	}
	c := transcript.NewVocabularyCorrector(cfg.Analysis.Vocabulary)

	s.analyzer.Store(a)
	s.corrector.Store(c)
	s.log.Info("analyzer ready",
		"lexicon", lexiconName(cfg.Analysis.LexiconFile),
		"vocabulary", len(cfg.Analysis.Vocabulary),
	)
	return nil
}

func buildAnalyzer(lexiconFile string) (*textanalysis.Analyzer, error) {
	if lexiconFile == "" {
		return textanalysis.NewDefault()
	}
	lex, err := textanalysis.LoadLexiconFile(lexiconFile)
	if err != nil {
		return nil, err
	}
	return textanalysis.New(lex)
}

func lexiconName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// Analyzer returns the analyzer currently in use.
func (s *Service) Analyzer() *textanalysis.Analyzer {
	return s.analyzer.Load()
}

// Analyze corrects t against the configured vocabulary, annotates the
// corrected text, and publishes the result. A publish failure is logged and
// counted but does not fail the call.
func (s *Service) Analyze(ctx context.Context, t transcript.Transcript) (*Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "service.Analyze")
	defer span.End()

	corrected, err := s.corrector.Load().Correct(ctx, t)
	if err != nil {
		return nil, s.fail(ctx, span, start, fmt.Errorf("service: correct transcript: %w", err))
	}

	ann, err := s.analyzer.Load().Analyze(ctx, corrected.Text)
	if err != nil {
		return nil, s.fail(ctx, span, start, fmt.Errorf("service: analyze: %w", err))
	}

	corrections := corrected.Corrections
	if corrections == nil {
		corrections = []transcript.Correction{}
	}
	res := &Result{
		ID:          uuid.New(),
		Text:        corrected.Text,
		Original:    t.Text,
		Corrections: corrections,
		Confidence:  t.Confidence,
		CreatedAt:   s.now().UTC(),
		Annotation:  ann,
	}

	s.publish(ctx, res)

	s.metrics.RecordCorrections(ctx, len(corrections))
	s.metrics.RecordAnalysis(ctx, time.Since(start).Seconds(), observe.StatusOK,
		string(ann.Sentiment.Label), string(ann.Language))
	span.SetAttributes(
		attribute.String("analysis.id", res.ID.String()),
		attribute.Int("analysis.words", ann.Statistics.WordCount),
		attribute.Int("analysis.corrections", len(corrections)),
	)
	return res, nil
}

// AnalyzeText analyzes text as a final transcript with full confidence.
func (s *Service) AnalyzeText(ctx context.Context, text string) (*Result, error) {
	return s.Analyze(ctx, transcript.Transcript{Text: text, IsFinal: true, Confidence: 1})
}

func (s *Service) fail(ctx context.Context, span trace.Span, start time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.RecordAnalysis(ctx, time.Since(start).Seconds(), observe.StatusError, "", "")
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		observe.LoggerFrom(ctx, s.log).Error("analysis failed", "err", err)
	}
	return err
}

func (s *Service) publish(ctx context.Context, res *Result) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, res); err != nil {
		s.metrics.RecordPublishError(ctx, s.subject)
		observe.LoggerFrom(ctx, s.log).Warn("publish analysis result",
			"id", res.ID, "subject", s.subject, "err", err)
	}
}

// CheckLexicon is a readiness probe that fails when the analyzer cannot
// annotate text.
func (s *Service) CheckLexicon(ctx context.Context) error {
	_, err := s.Analyzer().Analyze(ctx, "ready")
	return err
}

// Close closes the publisher. It is safe to call more than once.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.publisher != nil {
			err = s.publisher.Close()
		}
	})
	return err
}
