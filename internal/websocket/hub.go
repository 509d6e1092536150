package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const hubModule = "Hub"

// clusterChannel carries frames between instances so an owner connected to
// another instance still receives them.
const clusterChannel = "notes_rag_live"

// Frame is what a connected client receives.
type Frame struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

type clusterMessage struct {
	OwnerId string          `json:"owner_id"`
	Origin  string          `json:"origin"`
	Frame   json.RawMessage `json:"frame"`
}

// Hub tracks live connections per owner (several devices each).
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Optional; nil keeps delivery local to this instance.
	rdb *redis.Client
	id  string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		id:         uuid.NewString(),
		logger:     log,
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.OwnerId] = append(h.clients[client.OwnerId], client)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"owner_id": client.OwnerId})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.OwnerId]
	for i, c := range clients {
		if c == client {
			h.clients[client.OwnerId] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.OwnerId]) == 0 {
		delete(h.clients, client.OwnerId)
	}
}

// Connected reports how many local connections an owner has.
func (h *Hub) Connected(ownerId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerId])
}

// Send delivers an event to every connection of its owner, locally and,
// when Redis is configured, on the other instances.
func (h *Hub) Send(ownerId uuid.UUID, evt events.Event) {
	data, err := json.Marshal(Frame{Type: evt.EventType(), Data: evt.Payload(), Timestamp: evt.Timestamp()})
	if err != nil {
		h.logger.Error(hubModule, "Failed to encode frame", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(ownerId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{OwnerId: ownerId.String(), Origin: h.id, Frame: data})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn(hubModule, "Cluster publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliver(ownerId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[ownerId]...)
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer; its write pump exits once the channel closes.
			h.logger.Warn(hubModule, "Client buffer full, dropping connection", map[string]interface{}{"owner_id": ownerId})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var cm clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
			h.logger.Warn(hubModule, "Cluster message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if cm.Origin == h.id {
			continue
		}
		ownerId, err := uuid.Parse(cm.OwnerId)
		if err != nil {
			continue
		}
		h.deliver(ownerId, cm.Frame)
	}
}
