package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minglehq/mingle/backend/internal/messages"
)

const persistTimeout = 5 * time.Second

// MessageStore is the slice of the messages service the hub needs.
type MessageStore interface {
	Send(ctx context.Context, senderID, receiverID uint, content, imageURL string) (*messages.Message, error)
}

// HubConfig describes the dependencies required by the hub.
type HubConfig struct {
	Presence *Registry
	Messages MessageStore
	Logger   *zap.Logger
}

// Hub routes inbound realtime events. Each connection's read pump calls
// HandleEvent sequentially, so per-connection ordering is preserved;
// different connections run concurrently and share only the presence
// registry and the connection set, both mutex-guarded.
type Hub struct {
	presence *Registry
	messages MessageStore
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub constructs the hub and wires the presence transition broadcasts.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.Presence == nil {
		return nil, fmt.Errorf("realtime: presence registry required")
	}
	if cfg.Messages == nil {
		return nil, fmt.Errorf("realtime: message store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := &Hub{
		presence: cfg.Presence,
		messages: cfg.Messages,
		logger:   logger,
		clients:  make(map[*Client]struct{}),
	}
	cfg.Presence.OnOnline = func(userID uint) {
		hub.Broadcast(Outbound{Event: EventUserOnline, Data: presencePayload{UserID: userID}})
	}
	cfg.Presence.OnOffline = func(userID uint) {
		hub.Broadcast(Outbound{Event: EventUserOffline, Data: presencePayload{UserID: userID}})
	}
	return hub, nil
}

// Connect adds a new connection to the hub. The connection is not part of
// any user's presence until it sends a register event.
func (h *Hub) Connect(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

// Disconnect removes the connection from the hub and from presence.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	h.presence.Deregister(client)
}

// HandleEvent dispatches one inbound event to its handler.
func (h *Hub) HandleEvent(client *Client, envelope Envelope) {
	switch envelope.Event {
	case EventRegister:
		h.handleRegister(client, envelope.Data)
	case EventTyping:
		h.handleTyping(envelope.Data)
	case EventSendMessage:
		h.handleSendMessage(envelope.Data)
	default:
		h.logger.Debug("unknown realtime event", zap.String("event", envelope.Event))
	}
}

func (h *Hub) handleRegister(client *Client, data json.RawMessage) {
	var payload registerPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == 0 {
		// Missing identity is dropped silently.
		return
	}
	h.presence.Register(client, payload.UserID)
	client.deliver(Outbound{Event: EventOnlineUsers, Data: onlineUsersPayload{UserIDs: h.presence.OnlineUsers()}})
}

func (h *Hub) handleTyping(data json.RawMessage) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.From == 0 || payload.To == 0 {
		return
	}
	// Fire-and-forget: an offline recipient simply misses the event.
	h.EmitToUser(payload.To, Outbound{Event: EventTyping, Data: typingPayload{From: payload.From}})
}

func (h *Hub) handleSendMessage(data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if payload.SenderID == 0 || payload.ReceiverID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	message, err := h.messages.Send(ctx, payload.SenderID, payload.ReceiverID, payload.Content, payload.ImageURL)
	if err != nil {
		// Delivery only happens after the write succeeds; the sender
		// learns of the failure by the missing acknowledgment.
		h.logger.Error("message persistence failed",
			zap.Uint("sender_id", payload.SenderID),
			zap.Uint("receiver_id", payload.ReceiverID),
			zap.Error(err))
		return
	}

	h.EmitToUser(message.ReceiverID, Outbound{Event: EventPrivateMessage, Data: message})
	// Echo to the sender's own connections so other devices stay in sync.
	h.EmitToUser(message.SenderID, Outbound{Event: EventMessageSent, Data: message})
}

// EmitToUser queues the event on every live connection of the user. Users
// with no connections receive nothing.
func (h *Hub) EmitToUser(userID uint, event Outbound) {
	for _, client := range h.presence.ConnectionsFor(userID) {
		client.deliver(event)
	}
}

// Broadcast queues the event on every connection in the hub, registered or
// not.
func (h *Hub) Broadcast(event Outbound) {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.Unlock()
	for _, client := range targets {
		client.deliver(event)
	}
}
