// Package events publishes analysis results to NATS so other services can
// consume annotated transcripts.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MrWong99/earshot/internal/observe"
	"github.com/MrWong99/earshot/internal/resilience"
	"github.com/MrWong99/earshot/internal/service"
)

// Connection defaults.
const (
	DefaultMaxReconnects  = 10
	DefaultReconnectWait  = 2 * time.Second
	DefaultConnectTimeout = 5 * time.Second
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: publisher closed")

// conn is the subset of [*nats.Conn] the publisher uses.
type conn interface {
	PublishMsg(m *nats.Msg) error
	Status() nats.Status
	Close()
}

// NATSPublisher JSON-encodes results onto one subject.
// Consecutive publish failures open its breaker, after which results are
// dropped with [resilience.ErrOpen] until a probe publish succeeds.
type NATSPublisher struct {
	nc      conn
	subject string
	breaker *resilience.Breaker
	log     *slog.Logger
}

// Option configures a [NATSPublisher] connection.
type Option func(*options)

type options struct {
	maxReconnects  int
	reconnectWait  time.Duration
	connectTimeout time.Duration
	breakerOpts    []resilience.Option
	log            *slog.Logger
}

// WithMaxReconnects sets how often the client reconnects before giving up.
func WithMaxReconnects(n int) Option {
	return func(o *options) { o.maxReconnects = n }
}

// WithReconnectWait sets the delay between reconnect attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(o *options) { o.reconnectWait = d }
}

// WithConnectTimeout bounds the initial dial.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithBreaker tunes the circuit breaker that guards publishing.
func WithBreaker(opts ...resilience.Option) Option {
	return func(o *options) { o.breakerOpts = append(o.breakerOpts, opts...) }
}

// WithLogger sets the logger for connection state changes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewNATSPublisher connects to url and returns a publisher for subject.
func NewNATSPublisher(url, subject string, opts ...Option) (*NATSPublisher, error) {
	o := options{
		maxReconnects:  DefaultMaxReconnects,
		reconnectWait:  DefaultReconnectWait,
		connectTimeout: DefaultConnectTimeout,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log.With("subject", subject)
	nc, err := nats.Connect(url,
		nats.Name("earshot"),
		nats.MaxReconnects(o.maxReconnects),
		nats.ReconnectWait(o.reconnectWait),
		nats.Timeout(o.connectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	log.Info("nats connected", "url", nc.ConnectedUrl())
	return newPublisher(nc, subject, log, o.breakerOpts...), nil
}

func newPublisher(nc conn, subject string, log *slog.Logger, breakerOpts ...resilience.Option) *NATSPublisher {
	breakerOpts = append([]resilience.Option{resilience.WithLogger(log)}, breakerOpts...)
	return &NATSPublisher{
		nc:      nc,
		subject: subject,
		breaker: resilience.New("nats:"+subject, breakerOpts...),
		log:     log,
	}
}

// Subject returns the subject results are published to.
func (p *NATSPublisher) Subject() string { return p.subject }

// Publish sends r as JSON. The message carries the result ID as
// Nats-Msg-Id for JetStream de-duplication and the W3C trace context of ctx.
func (p *NATSPublisher) Publish(ctx context.Context, r *service.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.nc.Status() == nats.CLOSED {
		return ErrClosed
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("events: encode result %s: %w", r.ID, err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, r.ID.String())
	msg.Header.Set("Content-Type", "application/json")
	observe.Inject(ctx, msg.Header)

	err = p.breaker.Do(ctx, func(context.Context) error {
		return p.nc.PublishMsg(msg)
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", p.subject, err)
	}
	return nil
}

// Check reports whether the connection is usable. It is meant for readiness
// probes; a reconnecting client or an open breaker counts as not ready.
func (p *NATSPublisher) Check(_ context.Context) error {
	if s := p.nc.Status(); s != nats.CONNECTED {
		return fmt.Errorf("nats connection %s", s)
	}
	if s := p.breaker.State(); s == resilience.StateOpen {
		return fmt.Errorf("publish breaker %s", s)
	}
	return nil
}

// Close drops the connection. Buffered messages are discarded.
func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}

// NopPublisher discards every result. It is used when publishing is disabled.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, *service.Result) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

var (
	_ service.Publisher = (*NATSPublisher)(nil)
	_ service.Publisher = NopPublisher{}
)
