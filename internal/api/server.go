// Package api exposes the analyzer over HTTP and websocket.
//
// Routes:
//
//	POST /v1/analyze        {text} -> Annotation
//	POST /v1/analyze/batch  {texts} -> {results: [Annotation]}
//	GET  /v1/stream         websocket of transcripts -> results
//	POST /api/nlp           {text} -> legacy front-end shape
//	POST /api/tokenize      {text} -> {tokens}
//	GET  /healthz, /readyz  probes
//	GET  <metrics_path>     Prometheus scrape endpoint
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/earshot/internal/config"
	"github.com/MrWong99/earshot/internal/health"
	"github.com/MrWong99/earshot/internal/observe"
	"github.com/MrWong99/earshot/internal/service"
	"github.com/MrWong99/earshot/internal/transcript"
	"github.com/MrWong99/earshot/pkg/textanalysis"
)

const (
	// maxBodyBytes caps request bodies and websocket frames.
	maxBodyBytes = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// Analyzer is the service the handlers delegate to.
type Analyzer interface {
	Analyze(ctx context.Context, t transcript.Transcript) (*service.Result, error)
	AnalyzeText(ctx context.Context, text string) (*service.Result, error)
	Analyzer() *textanalysis.Analyzer
}

// Server routes HTTP requests to an [Analyzer].
type Server struct {
	svc     Analyzer
	metrics *observe.Metrics
	cfg     config.ServerConfig

	metricsPath    string
	metricsHandler http.Handler
	checkers       []health.Checker

	maxBatch    atomic.Int64
	concurrency atomic.Int64

	router chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metric instruments. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler sets the handler mounted at the metrics path. The
// default is [promhttp.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithReadiness adds checks evaluated by /readyz.
func WithReadiness(checkers ...health.Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, checkers...) }
}

// New builds the router for cfg.
func New(cfg *config.Config, svc Analyzer, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		cfg:         cfg.Server,
		metricsPath: cfg.Telemetry.MetricsPath,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	s.SetLimits(cfg.Analysis.MaxBatch, cfg.Analysis.Concurrency)
	s.router = s.routes()
	return s
}

// SetLimits changes the batch size limit and batch concurrency. It is safe to
// call while serving.
func (s *Server) SetLimits(maxBatch, concurrency int) {
	s.maxBatch.Store(int64(maxBatch))
	s.concurrency.Store(int64(concurrency))
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observe.Middleware(s.metrics, observe.WithQuietPaths("/healthz", "/readyz", s.metricsPath)))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Traceparent", "Tracestate"},
		ExposedHeaders: []string{"X-Analysis-ID", "X-Correlation-ID"},
		MaxAge:         300,
	}))

	health.New(s.checkers).Register(r)
	r.Method(http.MethodGet, s.metricsPath, s.metricsHandler)

	// Streams are long-lived and must not inherit the request timeout.
	r.Get("/v1/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Post("/v1/analyze", s.handleAnalyze)
		r.Post("/v1/analyze/batch", s.handleBatch)
		r.Post("/api/nlp", s.handleLegacyNLP)
		r.Post("/api/tokenize", s.handleTokenize)
	})

	return r
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Open streams see ctx cancellation and close.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
