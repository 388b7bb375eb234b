// Package events carries session state-change notifications to observers
// over a watermill pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

// Reason names what caused a state change
type Reason string

const (
	ReasonCurrentChanged       Reason = "current_changed"
	ReasonMessagesLoaded       Reason = "messages_loaded"
	ReasonMessageAdded         Reason = "message_added"
	ReasonMessageUpdated       Reason = "message_updated"
	ReasonCleared              Reason = "cleared"
	ReasonConversationsChanged Reason = "conversations_changed"
	ReasonLocalSaveFailed      Reason = "local_save_failed"
	ReasonLocalSaveRecovered   Reason = "local_save_recovered"
)

// StateChanged is published after the session state has been mutated.
// Observers re-read the snapshot they care about.
type StateChanged struct {
	Scope                 string    `json:"scope"`
	Reason                Reason    `json:"reason"`
	CurrentConversationID int64     `json:"currentConversationId"`
	MessageCount          int       `json:"messageCount"`
	ConversationCount     int       `json:"conversationCount"`
	At                    time.Time `json:"at"`
}

// Publisher receives state-change notifications
type Publisher interface {
	PublishStateChanged(ev StateChanged) error
}

// Nop drops every event
type Nop struct{}

func (Nop) PublishStateChanged(StateChanged) error { return nil }

// Bus publishes state changes on a watermill gochannel topic
type Bus struct {
	pubSub *gochannel.GoChannel
	topic  string
}

var _ Publisher = (*Bus)(nil)

// NewBus creates an in-process bus. Events published with no subscriber are dropped.
func NewBus(topic string, verbose bool) *Bus {
	var logger watermill.LoggerAdapter = watermill.NopLogger{}
	if verbose {
		logger = NewWatermill(log.Logger)
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
		topic: topic,
	}
}

// PublishStateChanged serializes ev and publishes it to the bus topic
func (b *Bus) PublishStateChanged(ev StateChanged) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal state event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish state event: %w", err)
	}

	log.Trace().Str("topic", b.topic).Str("reason", string(ev.Reason)).Msg("Published state event")
	return nil
}

// Subscribe streams decoded events until ctx is done or the bus is closed
func (b *Bus) Subscribe(ctx context.Context) (<-chan StateChanged, error) {
	messages, err := b.pubSub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.topic, err)
	}

	out := make(chan StateChanged, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var ev StateChanged
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed state event")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down the bus and ends every subscription
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
