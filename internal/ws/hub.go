package ws

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"go.uber.org/zap"
)

// eventBuffer is the per-client queue of broadcast messages.
const eventBuffer = 64

// OpenPayload asks the panel to show a content-store entry or to follow
// link text.
type OpenPayload struct {
	Path     string               `json:"path,omitempty"`
	Entry    *contentstore.Entry  `json:"entry,omitempty"`
	Cursor   *contentstore.Cursor `json:"cursor,omitempty"`
	LinkText string               `json:"linkText,omitempty"`
}

// Hub fans host-level messages out to every connected panel. It is the
// clipboard, notifier and content viewer of a served multiplexer.
type Hub struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.RWMutex
	clients map[string]chan types.WSMessage
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[string]chan types.WSMessage),
	}
}

// Register adds a client and returns its event stream and the function
// that removes it.
func (h *Hub) Register(clientID string) (<-chan types.WSMessage, func()) {
	ch := make(chan types.WSMessage, eventBuffer)
	h.mu.Lock()
	h.clients[clientID] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if h.clients[clientID] == ch {
			delete(h.clients, clientID)
		}
		h.mu.Unlock()
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Clients with a full queue miss
// the message.
func (h *Hub) Broadcast(msg types.WSMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, ch := range h.clients {
		select {
		case ch <- msg:
			sent++
		default:
			h.metrics.RecordWSMessage("dropped", msg.Type)
			h.logger.Warn("client event queue full", zap.String("client", id), zap.String("type", msg.Type))
		}
	}
	return sent
}

// WriteText implements clipboard.Clipboard.
func (h *Hub) WriteText(_ context.Context, text string) error {
	h.Broadcast(types.WSMessage{Type: MsgClipboard, Data: text})
	return nil
}

// Notify implements notify.Notifier.
func (h *Hub) Notify(message string) {
	h.Broadcast(types.WSMessage{Type: MsgNotice, Message: message})
}

// ShowEntry implements contentstore.Viewer.
func (h *Hub) ShowEntry(_ context.Context, abs string, e contentstore.Entry, cursor *contentstore.Cursor) error {
	h.Broadcast(types.WSMessage{Type: MsgOpen, Payload: OpenPayload{Path: abs, Entry: &e, Cursor: cursor}})
	return nil
}

// ShowLinkText implements contentstore.Viewer.
func (h *Hub) ShowLinkText(_ context.Context, text string) error {
	h.Broadcast(types.WSMessage{Type: MsgOpen, Payload: OpenPayload{LinkText: text}})
	return nil
}
