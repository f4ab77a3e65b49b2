package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overflowProducer builds a producer with a tiny buffer and no workers, so
// queued events stay queued and the overflow path is deterministic.
func overflowProducer(buffer int) *Producer {
	return &Producer{
		eventChan:    make(chan RoutingEvent, buffer),
		shutdownChan: make(chan struct{}),
	}
}

func TestPublishQueuesUntilBufferFull(t *testing.T) {
	p := overflowProducer(2)
	event := NewRoutingEvent(DecisionResolved, "demo.elzini.com", "/dashboard", "GET")

	require.NoError(t, p.Publish(event))
	require.NoError(t, p.Publish(event))
	assert.Equal(t, int64(0), p.Dropped())
}

func TestPublishDropsOnOverflow(t *testing.T) {
	p := overflowProducer(1)
	event := NewRoutingEvent(DecisionRateLimited, "busy.elzini.com", "/api", "POST")

	require.NoError(t, p.Publish(event))

	err := p.Publish(event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropped")
	assert.Equal(t, int64(1), p.Dropped())

	// Each shed event is counted, none block the caller.
	require.Error(t, p.Publish(event))
	assert.Equal(t, int64(2), p.Dropped())
}

func TestProducerCloseStopsWorkers(t *testing.T) {
	// No broker is reachable at this address; Close must still return
	// promptly because the writer only dials on write.
	p := NewProducer("127.0.0.1:1", "routing-events")

	require.NoError(t, p.Close())

	// After shutdown no worker drains the channel, so a full buffer is
	// reported as dropped rather than hanging the caller.
	for i := 0; i < cap(p.eventChan); i++ {
		_ = p.Publish(NewRoutingEvent(DecisionPassthrough, "elzini.com", "/", "GET"))
	}
	err := p.Publish(NewRoutingEvent(DecisionPassthrough, "elzini.com", "/", "GET"))
	assert.Error(t, err)
}

func TestNewRoutingEventStampsIdentityAndTime(t *testing.T) {
	event := NewRoutingEvent(DecisionNotFound, "ghost.elzini.com", "/shop", "GET")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, DecisionNotFound, event.Decision)
	assert.Equal(t, "ghost.elzini.com", event.Host)
	assert.Equal(t, "/shop", event.Path)
	assert.Equal(t, "GET", event.Method)
	assert.False(t, event.Timestamp.IsZero())

	other := NewRoutingEvent(DecisionNotFound, "ghost.elzini.com", "/shop", "GET")
	assert.NotEqual(t, event.ID, other.ID)
}
