// Package worker runs the background parts of the service: the bounded batch
// pool used by archive scans and the dispatcher that hands update events to
// the push collaborator.
package worker

import (
	"context"
	"fmt"

	"github.com/okian/benchboard/internal/adapters/mq/queue"
	"github.com/okian/benchboard/internal/domain/dedupe"
	"github.com/okian/benchboard/pkg/logger"
	"github.com/okian/benchboard/pkg/metrics"
)

// Event is the payload delivered to sinks.
type Event = queue.Event

// Source defines how the dispatcher receives events.
type Source interface {
	Subscribe(ctx context.Context) <-chan Event
}

// Sink receives every update event, e.g. a broadcaster to dashboard viewers.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, e Event) error { return f(ctx, e) } //nolint:gocritic // hugeParam: Event is passed by value for channel semantics

// Dispatcher drains a Source into a Sink until stopped.
type Dispatcher struct {
	source Source
	sink   Sink
	name   string
	seen   dedupe.Deduper

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(source Source, sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source:   source,
		sink:     sink,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named(d.name)
	}
	return d
}

// Run delivers events until ctx is canceled, Shutdown is called, or the
// source closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.source.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			d.deliver(ctx, e)
		}
	}
}

// deliver hands e to the sink unless its id was already delivered. A failed
// delivery is forgotten so that a republished event can be retried.
func (d *Dispatcher) deliver(ctx context.Context, e Event) { //nolint:gocritic // hugeParam
	if d.seen != nil && d.seen.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordErrorByComponent("dispatcher", "duplicate_event")
		d.logger.Debug(ctx, "duplicate event skipped", logger.String("event_id", e.EventID))
		return
	}
	if err := d.sink.Deliver(ctx, e); err != nil {
		if d.seen != nil {
			d.seen.Unrecord(ctx, e.EventID)
		}
		metrics.RecordErrorByComponent("dispatcher", "deliver_error")
		d.logger.Error(ctx, "event delivery failed",
			logger.String("event_id", e.EventID),
			logger.String("team_id", e.TeamID),
			logger.Error(err),
		)
	}
}

// Shutdown stops the dispatcher and waits for Run to return.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// LogSink logs every event at debug level. It stands in for a push
// transport when none is configured.
func LogSink(l logger.Logger) Sink {
	return SinkFunc(func(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam
		l.Debug(ctx, "update event",
			logger.String("event_id", e.EventID),
			logger.String("team_id", e.TeamID),
			logger.Float64("qps", e.Best.QPS),
			logger.Float64("avg_latency", e.LiveMetrics.AvgLatency),
		)
		return nil
	})
}
