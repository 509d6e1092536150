package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, hub *Hub, ownerId uuid.UUID) *Client {
	t.Helper()
	c := &Client{Hub: hub, OwnerId: ownerId, Send: make(chan []byte, 4)}
	hub.register <- c
	return c
}

func TestSendReachesOnlyTheOwner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	owner, other := uuid.New(), uuid.New()
	phone := connect(t, hub, owner)
	laptop := connect(t, hub, owner)
	stranger := connect(t, hub, other)
	require.Eventually(t, func() bool { return hub.Connected(owner) == 2 }, time.Second, 10*time.Millisecond)

	hub.Send(owner, events.NewChatTitled(owner.String(), uuid.NewString(), "Pasta Cooking"))

	for _, c := range []*Client{phone, laptop} {
		select {
		case raw := <-c.Send:
			var frame Frame
			require.NoError(t, json.Unmarshal(raw, &frame))
			assert.Equal(t, events.ChatTitled, frame.Type)
			assert.Equal(t, "Pasta Cooking", frame.Data["title"])
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}
	}
	assert.Empty(t, stranger.Send)
}

func TestUnregisterClosesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	owner := uuid.New()
	c := connect(t, hub, owner)
	hub.unregister <- c

	require.Eventually(t, func() bool { return hub.Connected(owner) == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}
