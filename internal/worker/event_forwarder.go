package worker

import (
	"context"
	"sync"
	"time"

	"roombooking/internal/events"
	"roombooking/internal/metrics"

	"github.com/rs/zerolog"
)

// Publisher delivers an event to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

// EventForwarder drains bus events into a bounded queue and hands each one to the
// publisher, retrying with backoff. Events that exhaust retries are dropped.
type EventForwarder struct {
	publisher   Publisher
	retryPolicy RetryPolicy
	queue       chan *events.Event
	logger      zerolog.Logger
	wait        func(ctx context.Context, d time.Duration) bool

	wg sync.WaitGroup
}

// NewEventForwarder builds a forwarder; zero retry fields fall back to DefaultRetryPolicy.
func NewEventForwarder(publisher Publisher, queueSize int, retry RetryPolicy, logger *zerolog.Logger) *EventForwarder {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &EventForwarder{
		publisher:   publisher,
		retryPolicy: retry.withDefaults(),
		queue:       make(chan *events.Event, queueSize),
		logger:      logger.With().Str("component", "event_forwarder").Logger(),
		wait:        sleepCtx,
	}
}

// Subscribe attaches the forwarder to the bus for the given event types.
func (f *EventForwarder) Subscribe(bus *events.EventBus, eventTypes ...string) {
	for _, t := range eventTypes {
		bus.Subscribe(t, f.Enqueue)
	}
}

// Enqueue queues the event without blocking the publisher. A full queue drops the event.
func (f *EventForwarder) Enqueue(event *events.Event) error {
	select {
	case f.queue <- event:
		return nil
	default:
		metrics.IncForwarded("dropped")
		f.logger.Warn().Str("event_type", event.Type).Str("event_id", event.ID).Msg("forward queue full, dropping event")
		return nil
	}
}

// Start processes queued events until ctx is cancelled.
func (f *EventForwarder) Start(ctx context.Context) {
	f.wg.Add(1)
	defer f.wg.Done()

	f.logger.Info().Int("queue_size", cap(f.queue)).Msg("event forwarder started")
	for {
		select {
		case <-ctx.Done():
			f.logger.Info().Int("pending", len(f.queue)).Msg("event forwarder stopped")
			return
		case event := <-f.queue:
			f.forward(ctx, event)
		}
	}
}

// Wait blocks until Start has returned.
func (f *EventForwarder) Wait() {
	f.wg.Wait()
}

func (f *EventForwarder) forward(ctx context.Context, event *events.Event) {
	log := f.logger.With().Str("event_type", event.Type).Str("event_id", event.ID).Logger()

	for attempt := 1; ; attempt++ {
		err := f.publisher.Publish(ctx, event)
		if err == nil {
			metrics.IncForwarded("sent")
			log.Debug().Int("attempt", attempt).Msg("event forwarded")
			return
		}

		if attempt > f.retryPolicy.MaxRetries {
			metrics.IncForwarded("failed")
			log.Error().Err(err).Int("attempts", attempt).Msg("event forwarding failed, giving up")
			return
		}

		delay := f.retryPolicy.NextDelay(attempt)
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("event forwarding failed, retrying")
		if !f.wait(ctx, delay) {
			metrics.IncForwarded("failed")
			log.Warn().Msg("shutdown during retry, event not forwarded")
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
