// Package realtime bridges queue changes to the doctor's panel over
// WebSocket, with Redis pub/sub carrying events between instances.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/clinigo/platform/internal/observability/metrics"
	"github.com/clinigo/platform/pkg/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Hub tracks WebSocket connections per doctor and fans queue events out to
// them. Clients only receive "something changed" signals; they refetch the
// queue themselves.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger
	metrics  *metrics.QueueMetrics

	mu    sync.RWMutex
	conns map[string]map[*client]struct{} // doctorID -> connections
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a connection hub. metrics may be nil.
func NewHub(m *metrics.QueueMetrics, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin is allowed: the panel runs on its own origin
			// and auth happens before the upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		metrics: m,
		conns:   make(map[string]map[*client]struct{}),
	}
}

// ServeWS upgrades the request and keeps the connection registered for a
// doctor until it drops.
// GET /api/checkin/queue/ws?doctor_id=
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctor_id")
	if doctorID == "" {
		http.Error(w, `{"error": "doctor_id is required"}`, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.register(doctorID, c)
	h.metrics.ConnOpened()
	h.logger.Info("realtime connection opened", "doctor_id", doctorID)

	go h.writePump(c)
	h.readPump(doctorID, c)
}

func (h *Hub) register(doctorID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[doctorID] == nil {
		h.conns[doctorID] = make(map[*client]struct{})
	}
	h.conns[doctorID][c] = struct{}{}
}

func (h *Hub) unregister(doctorID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[doctorID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.conns, doctorID)
			}
		}
	}
}

func (h *Hub) readPump(doctorID string, c *client) {
	defer func() {
		h.unregister(doctorID, c)
		_ = c.conn.Close()
		h.metrics.ConnClosed()
		h.logger.Debug("realtime connection closed", "doctor_id", doctorID)
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast delivers an event to every connection watching a doctor. Slow
// consumers are skipped rather than blocking the rest.
func (h *Hub) Broadcast(doctorID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal realtime event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[doctorID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ConnectedDoctors lists the doctors with at least one open connection.
func (h *Hub) ConnectedDoctors() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.conns))
	for doctorID := range h.conns {
		out = append(out, doctorID)
	}
	return out
}

// ConnectionCount reports open connections for a doctor.
func (h *Hub) ConnectionCount(doctorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[doctorID])
}
