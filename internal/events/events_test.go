package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus("test.session", false)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.PublishStateChanged(StateChanged{
		Scope:                 "wine_7",
		Reason:                ReasonMessageAdded,
		CurrentConversationID: 4,
		MessageCount:          2,
	}))

	select {
	case ev := <-events:
		assert.Equal(t, "wine_7", ev.Scope)
		assert.Equal(t, ReasonMessageAdded, ev.Reason)
		assert.Equal(t, int64(4), ev.CurrentConversationID)
		assert.Equal(t, 2, ev.MessageCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state event")
	}
}

func TestBus_PublishWithoutSubscriber(t *testing.T) {
	bus := NewBus("test.session", true)
	defer bus.Close()

	assert.NoError(t, bus.PublishStateChanged(StateChanged{Reason: ReasonCleared}))
}

func TestBus_CloseEndsSubscription(t *testing.T) {
	bus := NewBus("test.session", false)

	events, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishStateChanged(StateChanged{}))
}
