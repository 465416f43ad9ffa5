package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsSendQueueSize = 64
)

// wsEvent is the wire shape pushed to connected clients.
type wsEvent struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// WebSocketHandler pushes job and document lifecycle events to
// connected UI clients.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	logger   arbor.ILogger

	mu      sync.Mutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsEvent
}

// NewWebSocketHandler creates the event push handler and subscribes it
// to the lifecycle topics.
func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*wsClient]bool),
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventJobStarted,
		interfaces.EventJobProgress,
		interfaces.EventJobFinished,
		interfaces.EventDocumentNew,
		interfaces.EventEmbedStarted,
		interfaces.EventEmbedDone,
	} {
		events.Subscribe(eventType, h.broadcast)
	}

	return h
}

// Serve handles GET /ws
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan wsEvent, wsSendQueueSize)}
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	go h.writeLoop(client)
	h.readLoop(client)
}

// broadcast fans one bus event out to every connected client. Clients
// with a full queue are dropped rather than blocking the bus.
func (h *WebSocketHandler) broadcast(ctx context.Context, event interfaces.Event) {
	message := wsEvent{Type: string(event.Type), Payload: event.Payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *WebSocketHandler) writeLoop(client *wsClient) {
	defer client.conn.Close()
	for message := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := client.conn.WriteJSON(message); err != nil {
			h.remove(client)
			return
		}
	}
}

// readLoop drains control frames until the peer disconnects.
func (h *WebSocketHandler) readLoop(client *wsClient) {
	defer h.remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
	client.conn.Close()
}
