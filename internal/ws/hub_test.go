package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishQueuesEncodedEvent(t *testing.T) {
	h := NewHub(nil)
	h.Publish(Event{Type: "audit", Action: "CREATE_ITEM", Actor: "admin"})

	require.Len(t, h.Broadcast, 1)
	var got Event
	require.NoError(t, json.Unmarshal(<-h.Broadcast, &got))
	assert.Equal(t, "CREATE_ITEM", got.Action)
	assert.Equal(t, "admin", got.Actor)
}

func TestPublishDropsWhenFull(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i < broadcastBuffer+10; i++ {
		h.Publish(Event{Type: "audit", Action: "X"})
	}
	assert.Len(t, h.Broadcast, broadcastBuffer)
}

func TestNilHubPublish(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.Publish(Event{Action: "X"}) })
}

func TestAttachAfterShutdown(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	conn := &websocket.Conn{}
	attached := make(chan bool, 1)
	go func() { attached <- h.Attach(ctx, conn) }()
	select {
	case ok := <-attached:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Attach blocked on a stopped hub")
	}

	detached := make(chan struct{})
	go func() {
		h.Detach(ctx, conn)
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("Detach blocked on a stopped hub")
	}
	assert.Zero(t, h.ClientCount())
}
