package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/pkg/messaging"
)

// Subscribe decodes the events published on channel. Messages that are not
// events are logged and dropped. The channel closes when ctx is done.
func Subscribe(ctx context.Context, broker messaging.Broker, channel string) (<-chan Event, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for msg := range msgs {
			var evt Event
			if err := json.Unmarshal(msg, &evt); err != nil || evt.Type == "" {
				log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed event")
				continue
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
