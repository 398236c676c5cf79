package event

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Store is the dispatcher's persistence boundary. Events are written by the
// funding service in the same transaction as the state change they describe;
// the dispatcher drains undispatched rows.
type Store interface {
	ListUndispatchedEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventDispatched(ctx context.Context, eventID string, dispatchedAt time.Time) error
	MarkEventDispatchFailed(ctx context.Context, eventID string, lastError string) error
}

// Sink receives dispatched events. Delivery is at-least-once: a sink may see
// the same event again after a crash between delivery and bookkeeping.
type Sink interface {
	Deliver(ctx context.Context, evt Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, evt Event) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// LogSink writes events to the process log. It is the default sink for the
// funding daemon when no external consumer is configured.
func LogSink() Sink {
	return SinkFunc(func(_ context.Context, evt Event) error {
		log.Printf(
			"funding event dispatched id=%s campaign_id=%d type=%s amount=%d",
			evt.ID, evt.CampaignID, evt.Type, evt.Payload.Amount,
		)
		return nil
	})
}

// Dispatcher drains undispatched events to a sink.
type Dispatcher struct {
	store     Store
	sink      Sink
	clock     func() time.Time
	batchSize int
}

// NewDispatcher creates a dispatcher with default dependencies.
func NewDispatcher(store Store, sink Sink, clock func() time.Time, batchSize int) *Dispatcher {
	if clock == nil {
		clock = time.Now
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		store:     store,
		sink:      sink,
		clock:     clock,
		batchSize: batchSize,
	}
}

// DispatchPending delivers one batch of undispatched events in order and
// returns how many were delivered. A failed delivery is recorded and left
// undispatched for a later pass; it does not block later events.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	if d == nil || d.store == nil {
		return 0, errors.New("event store is not configured")
	}
	if d.sink == nil {
		return 0, errors.New("event sink is not configured")
	}

	pending, err := d.store.ListUndispatchedEvents(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list undispatched events: %w", err)
	}

	delivered := 0
	for _, evt := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.sink.Deliver(ctx, evt); err != nil {
			if markErr := d.store.MarkEventDispatchFailed(ctx, evt.ID, err.Error()); markErr != nil {
				return delivered, fmt.Errorf("mark event %s dispatch failed: %w", evt.ID, markErr)
			}
			continue
		}
		if err := d.store.MarkEventDispatched(ctx, evt.ID, d.clock().UTC()); err != nil {
			return delivered, fmt.Errorf("mark event %s dispatched: %w", evt.ID, err)
		}
		delivered++
	}
	return delivered, nil
}

// Run drains pending events on an interval until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Printf("funding event dispatch pass: %v", err)
			}
		}
	}
}
