package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule      = "Hub"
	clusterChannel = "cluster_events"
	broadcastAll   = "*"
)

// clusterMessage is what instances exchange over redis pub/sub.
type clusterMessage struct {
	Origin  string          `json:"origin"`
	Target  string          `json:"target"`
	Message json.RawMessage `json:"message"`
}

type Hub struct {
	// chat id -> connected clients (one chat may be open in several tabs)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// optional, fans broadcasts out to the other instances
	rdb *redis.Client
	id  string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		id:         uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ChatID] = append(h.clients[client.ChatID], client)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"chat_id": client.ChatID})

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.ChatID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.ChatID] = append(clients[:i], clients[i+1:]...)
			close(client.quit)
			break
		}
	}
	if len(h.clients[client.ChatID]) == 0 {
		delete(h.clients, client.ChatID)
		h.logger.Info(hubModule, "Client unregistered", map[string]interface{}{"chat_id": client.ChatID})
	}
}

// ClientCount reports the number of local connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// BroadcastIndexRefreshed pushes an index_refreshed frame to every client of
// every instance.
func (h *Hub) BroadcastIndexRefreshed(msg *dto.IndexRefreshedMessage) {
	data, err := json.Marshal(dto.ChatSocketFrame{Type: FrameIndexRefreshed, Index: msg})
	if err != nil {
		h.logger.Error(hubModule, "Failed to encode index frame", map[string]interface{}{"error": err})
		return
	}

	h.deliverLocal(data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.id, Target: broadcastAll, Message: data})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn(hubModule, "Failed to publish to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(data []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn(hubModule, "Client send buffer full, disconnecting", map[string]interface{}{"chat_id": client.ChatID})
		go h.leave(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(hubModule, "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.id || payload.Target != broadcastAll {
				continue
			}
			h.deliverLocal(payload.Message)
		}
	}
}
