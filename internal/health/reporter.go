// Package health periodically reports which configuration files are held
// open in this process. It is pure observability and carries no
// correctness responsibility.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
)

// DefaultInterval is the time between reports.
const DefaultInterval = 2 * time.Second

// ErrAlreadyStarted is returned by Start on every call after the first.
var ErrAlreadyStarted = errors.New("health reporter already started")

// Snapshotter lists the currently held file identities.
// *locks.Registry implements it.
type Snapshotter interface {
	Snapshot() []string
}

// Report is one snapshot of the held files.
type Report struct {
	ID    string
	Time  time.Time
	Files []string
}

// Sink receives reports. An error from Emit stops the reporter.
type Sink interface {
	Emit(Report) error
}

// LogSink writes reports to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs r at info level.
func (s LogSink) Emit(r Report) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("health report",
		"report", r.ID,
		"time", r.Time.Format(time.RFC3339),
		"locked_files", len(r.Files),
		"files", r.Files)
	return nil
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Report) error

// Emit calls f(r).
func (f SinkFunc) Emit(r Report) error { return f(r) }

// Reporter emits a Report every interval until its context is cancelled.
type Reporter struct {
	source   Snapshotter
	sink     Sink
	clock    clock.Clock
	interval time.Duration

	mu      sync.Mutex // guards started and cancel
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock sets the clock that paces reports.
func WithClock(c clock.Clock) Option {
	return func(r *Reporter) { r.clock = c }
}

// WithInterval sets the time between reports. Non-positive values are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewReporter creates a reporter that snapshots source into sink.
func NewReporter(source Snapshotter, sink Sink, opts ...Option) *Reporter {
	r := &Reporter{
		source:   source,
		sink:     sink,
		clock:    clock.WallClock,
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the report loop in its own goroutine. A reporter runs at
// most once: later calls return ErrAlreadyStarted, even after Stop.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for it to exit. Stop on a reporter that
// was never started returns immediately.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-r.done
}

// Done is closed when the loop exits.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

// Err returns the sink error that stopped the loop, if any. It is only
// meaningful after Done is closed.
func (r *Reporter) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (r *Reporter) loop(ctx context.Context) {
	defer close(r.done)
	for {
		// Snapshot copies the registry; nothing is locked while emitting.
		report := Report{
			ID:    uuid.NewString(),
			Time:  r.clock.Now(),
			Files: r.source.Snapshot(),
		}
		if err := r.sink.Emit(report); err != nil {
			r.err = fmt.Errorf("emit health report: %w", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(r.interval):
		}
	}
}
