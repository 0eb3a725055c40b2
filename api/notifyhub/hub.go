package notifyhub

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// Hub holds WebSocket connections and pushes every session change to all of them.
type Hub struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	conns   map[*websocket.Conn]struct{}
}

// New creates a new notify hub.
func New() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends the event as JSON to all registered connections.
func (h *Hub) Broadcast(event types.SessionEvent) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to encode session event: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.send(conn, payload)
	}
}

// gorilla connections allow one concurrent writer.
func (h *Hub) send(conn *websocket.Conn, payload []byte) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		tool.DefaultLogger.Debugf("Dropping websocket client: %v", err)
	}
}

func (h *Hub) OnStatusChange(snap types.Snapshot) {
	h.Broadcast(types.SessionEvent{Event: "status", Snapshot: snap})
}

func (h *Hub) OnProgress(snap types.Snapshot) {
	h.Broadcast(types.SessionEvent{Event: "progress", Snapshot: snap})
}

func (h *Hub) OnError(snap types.Snapshot) {
	h.Broadcast(types.SessionEvent{Event: "error", Snapshot: snap})
}
