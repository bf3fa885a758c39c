package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// WebSocket tuning constants, adapted from
// services/chat-service/internal/handlers/websocket_handler.go.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	// maxConnectionsPerUser caps concurrent sessions, matching
	// services/chat-service/internal/handlers/chat_handler.go.
	maxConnectionsPerUser = 5
)

// CrossInstanceFanout publishes an already-serialized event onto the shared
// log-bus stream keyed by conversation id, so every process instance
// subscribed to that stream delivers to its own local connections (§4.3.3).
// Implemented by internal/events against Kafka.
type CrossInstanceFanout interface {
	PublishToConversation(conversationID uuid.UUID, payload []byte) error
}

// Client is a single authenticated WebSocket connection, registered under
// the one conversation named at connect time; it is not registered under
// the user's other conversations.
type Client struct {
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Limiter *rate.Limiter
	hub     *Hub
}

// Hub holds the local connection registry: conversation_id -> set of live
// connections. It is the intra-process half of cross-instance fanout;
// Fanout is the inter-process half.
type Hub struct {
	mu            sync.RWMutex
	byConversation map[uuid.UUID]map[*Client]bool
	register      chan registration
	unregister    chan registration
	broadcast     chan broadcastMsg
	fanout        CrossInstanceFanout
	logger        *logrus.Logger
}

type registration struct {
	client         *Client
	conversationID uuid.UUID
}

type broadcastMsg struct {
	conversationID uuid.UUID
	payload        []byte
}

func NewHub(fanout CrossInstanceFanout, logger *logrus.Logger) *Hub {
	return &Hub{
		byConversation: make(map[uuid.UUID]map[*Client]bool),
		register:       make(chan registration, 64),
		unregister:     make(chan registration, 64),
		broadcast:      make(chan broadcastMsg, 256),
		fanout:         fanout,
		logger:         logger,
	}
}

// Run is the Hub's single select-loop goroutine, following the teacher's
// register/unregister/broadcast pattern in
// services/chat-service/internal/handlers/websocket_handler.go.
func (h *Hub) Run() {
	for {
		select {
		case r := <-h.register:
			h.mu.Lock()
			set, ok := h.byConversation[r.conversationID]
			if !ok {
				set = make(map[*Client]bool)
				h.byConversation[r.conversationID] = set
			}
			set[r.client] = true
			h.mu.Unlock()

		case r := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.byConversation[r.conversationID]; ok {
				if _, present := set[r.client]; present {
					delete(set, r.client)
					close(r.client.Send)
					if len(set) == 0 {
						delete(h.byConversation, r.conversationID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliverLocal(msg.conversationID, msg.payload)
		}
	}
}

// deliverLocal delivers to every connection this instance holds for the
// conversation; it is invoked both for locally-originated publishes and for
// messages received from the cross-instance fanout subscription.
func (h *Hub) deliverLocal(conversationID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.byConversation[conversationID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.WithField("user_id", client.UserID).Warn("dropping slow websocket client")
		}
	}
}

// DeliverFromFanout is called by the bus subscriber when a message arrives
// from another process instance's publish.
func (h *Hub) DeliverFromFanout(conversationID uuid.UUID, payload []byte) {
	h.deliverLocal(conversationID, payload)
}

// Publish delivers locally and forwards to the cross-instance bus so every
// other instance's registry also delivers to its own connections.
func (h *Hub) Publish(conversationID uuid.UUID, payload []byte) {
	h.broadcast <- broadcastMsg{conversationID: conversationID, payload: payload}
	if h.fanout != nil {
		if err := h.fanout.PublishToConversation(conversationID, payload); err != nil {
			h.logger.WithError(err).Error("fanout publish failed")
		}
	}
}

// Register adds client under conversationID's registry entry.
func (h *Hub) Register(client *Client, conversationID uuid.UUID) {
	h.register <- registration{client: client, conversationID: conversationID}
}

// Unregister removes client from conversationID's registry entry. The
// periodic registry sweep (internal/cleanup) only logs oversized entries;
// it removes nothing.
func (h *Hub) Unregister(client *Client, conversationID uuid.UUID) {
	h.unregister <- registration{client: client, conversationID: conversationID}
}

// ConnectionCount reports live connections for a conversation, used by the
// periodic registry sweep and metrics.
func (h *Hub) ConnectionCount(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byConversation[conversationID])
}

// ActiveConversationIDs lists every conversation with at least one live
// local connection, used by internal/cleanup's registry sweep.
func (h *Hub) ActiveConversationIDs() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(h.byConversation))
	for id := range h.byConversation {
		ids = append(ids, id)
	}
	return ids
}
