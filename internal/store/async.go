package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"parking-ledger/internal/logging"
	"parking-ledger/internal/parking"
)

var ErrWriterClosed = errors.New("state writer is closed")

// AsyncWriter decouples the service from storage latency. Save only records
// the newest state; a background goroutine writes it with retries. States
// superseded before they are written are skipped.
type AsyncWriter struct {
	next parking.Store

	mu         sync.Mutex
	latest     *parking.SystemState
	latestCtx  context.Context
	closed     bool
	wake       chan struct{}
	done       chan struct{}
	maxTries   uint
	initial    time.Duration
	maxBackoff time.Duration

	writes   metric.Int64Counter
	failures metric.Int64Counter
}

type AsyncOption func(*AsyncWriter)

func WithRetry(maxTries uint, initial, max time.Duration) AsyncOption {
	return func(w *AsyncWriter) {
		w.maxTries = maxTries
		w.initial = initial
		w.maxBackoff = max
	}
}

func NewAsyncWriter(next parking.Store, opts ...AsyncOption) *AsyncWriter {
	w := &AsyncWriter{
		next:       next,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		maxTries:   5,
		initial:    200 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}

	meter := otel.Meter("parking-ledger/store")
	w.writes, _ = meter.Int64Counter("state_writes_total",
		metric.WithDescription("State snapshots written to storage"),
		metric.WithUnit("1"))
	w.failures, _ = meter.Int64Counter("state_write_failures_total",
		metric.WithDescription("State snapshots dropped after exhausting retries"),
		metric.WithUnit("1"))

	go w.run()
	return w
}

func (w *AsyncWriter) Load(ctx context.Context) (*parking.SystemState, error) {
	return w.next.Load(ctx)
}

func (w *AsyncWriter) Save(ctx context.Context, state *parking.SystemState) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.latest = state
	w.latestCtx = context.WithoutCancel(ctx)
	select {
	case w.wake <- struct{}{}:
	default:
	}
	w.mu.Unlock()
	return nil
}

// Close stops accepting states, writes the pending one and waits for the
// worker to finish or ctx to expire.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.wake)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) take() (*parking.SystemState, context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	state, ctx := w.latest, w.latestCtx
	w.latest, w.latestCtx = nil, nil
	return state, ctx
}

func (w *AsyncWriter) run() {
	defer close(w.done)

	for range w.wake {
		state, ctx := w.take()
		if state == nil {
			continue
		}
		w.write(ctx, state)
	}

	// a Save may have raced with Close
	if state, ctx := w.take(); state != nil {
		w.write(ctx, state)
	}
}

func (w *AsyncWriter) write(ctx context.Context, state *parking.SystemState) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.initial
	bo.MaxInterval = w.maxBackoff

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		if err := w.next.Save(ctx, state); err != nil {
			logging.Warn(ctx, "state write failed", "attempt", attempts, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(w.maxTries),
	)

	if err != nil {
		w.failures.Add(ctx, 1)
		logging.Error(ctx, "state write abandoned", "attempts", attempts, "error", err)
		return
	}
	w.writes.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempts", attempts)))
}
