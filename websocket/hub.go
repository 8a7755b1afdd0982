package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Notice is pushed to a connected worker when a request is assigned,
// accepted, or withdrawn. The hub is only the in-process hook surface;
// notification content and delivery channels (email, push) are external
// collaborators.
type Notice struct {
	Type      string    `json:"type"`
	RequestID uint      `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// client is one connected worker socket.
type client struct {
	workerID uint
	conn     *websocket.Conn
	send     chan []byte
}

// Hub manages worker notification sockets.
type Hub struct {
	clients    map[uint]*client
	register   chan *client
	unregister chan *client
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub creates a worker notification hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.workerID]; ok {
				close(old.send)
				_ = old.conn.Close()
			}
			h.clients[c.workerID] = c
			h.mu.Unlock()
			h.logger.Debug("worker connected", zap.Uint("worker_id", c.workerID))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.workerID]; ok && cur == c {
				delete(h.clients, c.workerID)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("worker disconnected", zap.Uint("worker_id", c.workerID))
		}
	}
}

// NotifyWorker pushes a notice to a connected worker. Workers without an
// open socket simply miss the push; state is authoritative in the database.
func (h *Hub) NotifyWorker(workerID uint, eventType string, requestID uint) {
	h.mu.RLock()
	c, ok := h.clients[workerID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(Notice{
		Type:      eventType,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	default:
		h.logger.Warn("worker notice channel full, dropping",
			zap.Uint("worker_id", workerID))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWorkerSocket upgrades a worker's connection and registers it.
func (h *Hub) HandleWorkerSocket(c *gin.Context) {
	workerID := c.GetUint("user_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		workerID: workerID,
		conn:     conn,
		send:     make(chan []byte, 16),
	}
	h.register <- cl

	go cl.writePump(h)
	go cl.readPump(h)
}

func (c *client) writePump(h *Hub) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
