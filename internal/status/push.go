package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/para-dev/para/internal/common/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// pushClient is one subscriber connection, fanned out to by a single session.
type pushClient struct {
	id        string
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	hub       *Hub
	log       *logger.Logger
}

// Hub fans Status document updates out to websocket subscribers, one
// subscription per session name, so external consumers (a TUI, an IDE
// extension) can watch a session's progress without polling the state
// directory themselves.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*pushClient]bool

	register   chan *pushClient
	unregister chan *pushClient
	broadcast  chan sessionUpdate

	log *logger.Logger
}

type sessionUpdate struct {
	sessionID string
	doc       *Document
}

// NewHub constructs a Hub. Callers must run Hub.Run in a goroutine.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*pushClient]bool),
		register:    make(chan *pushClient),
		unregister:  make(chan *pushClient),
		broadcast:   make(chan sessionUpdate, 256),
		log:         log.WithFields(zap.String("component", "status_hub")),
	}
}

// Run processes registrations and broadcasts until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			h.mu.Lock()
			for _, clients := range h.subscribers {
				for c := range clients {
					close(c.send)
				}
			}
			h.subscribers = make(map[string]map[*pushClient]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.subscribers[c.sessionID] == nil {
				h.subscribers[c.sessionID] = make(map[*pushClient]bool)
			}
			h.subscribers[c.sessionID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.subscribers[c.sessionID]; ok {
				if _, ok := clients[c]; ok {
					delete(clients, c)
					close(c.send)
					if len(clients) == 0 {
						delete(h.subscribers, c.sessionID)
					}
				}
			}
			h.mu.Unlock()

		case upd := <-h.broadcast:
			h.mu.RLock()
			clients := h.subscribers[upd.sessionID]
			h.mu.RUnlock()
			if len(clients) == 0 {
				continue
			}
			data, err := json.Marshal(upd.doc)
			if err != nil {
				h.log.WithError(err).Warn("failed to marshal status update")
				continue
			}
			for c := range clients {
				select {
				case c.send <- data:
				default:
					h.unregister <- c
				}
			}
		}
	}
}

// Publish queues doc for delivery to every subscriber of sessionID.
func (h *Hub) Publish(sessionID string, doc *Document) {
	h.broadcast <- sessionUpdate{sessionID: sessionID, doc: doc}
}

// ServeHTTP lets a Hub be mounted directly as an http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

// ServeWS upgrades the request to a websocket and subscribes it to the
// session named by the "session" query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session query parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade status subscriber connection")
		return
	}

	client := &pushClient{
		id:        uuid.New().String(),
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 16),
		hub:       h,
		log:       h.log,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *pushClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *pushClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
