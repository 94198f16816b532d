package emit

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// DiagnosticsAddr is the fixed address the diagnostics broadcaster listens
// on. It is an observability add-on, not part of the command/event wire
// protocol in §6, so unlike the command and event UDP ports it carries no
// normative weight: a client that never connects changes nothing about the
// simulator's behavior.
const DiagnosticsAddr = "127.0.0.1:10100"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected diagnostics viewer.
type client struct {
	conn *websocket.Conn
	send chan string
}

// Hub fans every status line, event, and crash notice out to any number of
// connected diagnostics viewers. Unlike the teacher's ElevatorSession,
// which accepts commands over its WebSocket, Hub is push-only: diagnostics
// viewers observe the simulator, they do not drive it.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// Broadcast sends msg to every connected client without blocking; a
// client whose send buffer is full is dropped rather than allowed to
// stall the broadcaster.
func (h *Hub) Broadcast(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("diagnostics client too slow, dropping")
			delete(h.clients, c)
			close(c.send)
			c.conn.Close()
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("diagnostics upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan string, 32)}
	h.add(c)
	go h.writePump(c)
	go h.readPump(c)
}

// writePump relays broadcast messages to the client's socket until the
// send channel is closed by remove.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			h.remove(c)
			return
		}
	}
}

// readPump exists only to notice when the client disconnects; diagnostics
// viewers have nothing to say, so any inbound message is discarded.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// ListenDiagnostics serves the diagnostics WebSocket endpoint on addr until
// the process exits or the listener fails. Per §6's error model, failure to
// bind this optional endpoint is logged, not fatal: only the command and
// event UDP sockets are load-bearing enough to abort startup.
func ListenDiagnostics(addr string, hub *Hub) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/diagnostics", hub.handleWebSocket)
	return http.ListenAndServe(addr, mux)
}
