package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/pkg/circuitbreaker"
	"github.com/jwalitptl/dental-api/pkg/messaging"
)

// Publisher emits domain events. Publishing is best effort: failures are
// logged and never returned to the caller's request path.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type brokerPublisher struct {
	broker  messaging.Broker
	channel string
	cb      *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewPublisher(broker messaging.Broker, channel string) Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &brokerPublisher{
		broker:  broker,
		channel: channel,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "event-publisher",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		timeout: 2 * time.Second,
	}
}

func (p *brokerPublisher) Publish(ctx context.Context, evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	// The request context may be cancelled right after the response is written.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err := p.cb.Execute(func() error {
		return p.broker.Publish(pubCtx, p.channel, evt)
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(evt.Type)).
			Str("resource_id", evt.ResourceID).
			Msg("failed to publish event")
	}
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that discards events.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) {
	r.Events = append(r.Events, evt)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	types := make([]EventType, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}
