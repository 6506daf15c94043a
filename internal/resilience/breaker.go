// Package resilience provides a circuit breaker for calls to dependencies
// that may go away, such as the event bus.
//
// A [Breaker] starts closed and forwards every call. After a run of
// consecutive failures it opens and rejects calls with [ErrOpen] until the
// cool-down elapses. It then lets probe calls through (half-open): enough
// successful probes close it again, any failed probe reopens it.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Defaults for a [Breaker].
const (
	DefaultMaxFailures = 5
	DefaultCoolDown    = 30 * time.Second
	DefaultProbes      = 1
)

// Breaker is a three-state circuit breaker. It is safe for concurrent use.
type Breaker struct {
	name        string
	maxFailures int
	coolDown    time.Duration
	probes      int
	now         func() time.Time
	log         *slog.Logger

	mu        sync.Mutex
	state     State
	gen       uint64 // bumped on every state change
	failures  int
	openedAt  time.Time
	inFlight  int // probes running while half-open
	probeWins int
}

// ticket is handed out by admit and returned to record.
type ticket struct {
	probe bool
	gen   uint64
}

// Option configures a [Breaker].
type Option func(*Breaker)

// WithMaxFailures sets how many consecutive failures open the breaker.
func WithMaxFailures(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithCoolDown sets how long the breaker stays open before probing.
func WithCoolDown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.coolDown = d
		}
	}
}

// WithProbes sets how many successful half-open calls close the breaker.
func WithProbes(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.probes = n
		}
	}
}

// WithClock replaces [time.Now].
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithLogger sets the logger for state changes.
func WithLogger(l *slog.Logger) Option {
	return func(b *Breaker) {
		if l != nil {
			b.log = l
		}
	}
}

// New returns a closed breaker. name labels its log lines.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		maxFailures: DefaultMaxFailures,
		coolDown:    DefaultCoolDown,
		probes:      DefaultProbes,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Do runs fn unless the breaker is open. Errors caused by ctx ending are
// returned but not counted as failures of the dependency.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tk, err := b.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.release(tk)
		return err
	}
	b.record(tk, err)
	return err
}

// admit decides whether a call may run and whether it is a probe.
func (b *Breaker) admit() (ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.coolDown {
			return ticket{}, ErrOpen
		}
		b.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.inFlight+b.probeWins >= b.probes {
			return ticket{}, ErrOpen
		}
		b.inFlight++
		return ticket{probe: true, gen: b.gen}, nil
	}
	return ticket{gen: b.gen}, nil
}

// release returns a probe slot without judging the dependency.
func (b *Breaker) release(tk ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tk.probe && tk.gen == b.gen {
		b.inFlight--
	}
}

func (b *Breaker) record(tk ticket, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tk.gen != b.gen {
		// The state changed while the call ran; its outcome is stale.
		return
	}

	if tk.probe {
		b.inFlight--
		if err != nil {
			b.open()
			return
		}
		b.probeWins++
		if b.probeWins >= b.probes {
			b.failures = 0
			b.transition(StateClosed)
		}
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.open()
	}
}

// open must be called with b.mu held.
func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	b.log.Info("circuit breaker state change",
		"name", b.name,
		"from", b.state,
		"to", to,
		"consecutive_failures", b.failures,
	)
	b.state = to
	b.gen++
	b.inFlight = 0
	b.probeWins = 0
}

// State reports the current state. An open breaker whose cool-down has
// elapsed reports [StateHalfOpen]; the switch itself happens on the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.coolDown {
		return StateHalfOpen
	}
	return b.state
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.transition(StateClosed)
}
