package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"agile-live/internal/pipeline"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 4
)

// Hub fans analysis messages out to WebSocket subscribers. New subscribers get
// the latest message straight away.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
	last    []byte
	closed  bool

	// OnCount is called with the subscriber count after every change.
	OnCount func(n int)
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// Publish broadcasts the analysis, geometry included.
func (h *Hub) Publish(_ context.Context, res *pipeline.Result) error {
	raw, err := json.Marshal(analysisMessage(res, true))
	if err != nil {
		return err
	}
	h.Broadcast(raw)
	return nil
}

// Broadcast queues raw for every subscriber. Subscribers whose buffer is full
// are dropped rather than allowed to stall the others.
func (h *Hub) Broadcast(raw []byte) {
	h.mu.Lock()
	h.last = raw
	var slow []*subscriber
	for s := range h.clients {
		select {
		case s.send <- raw:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.Unlock()

	for _, s := range slow {
		zap.L().Warn("[WS] Dropping slow subscriber", zap.String("remote", s.conn.RemoteAddr().String()))
		h.remove(s)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams messages until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("[WS] Upgrade failed", zap.Error(err))
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[s] = struct{}{}
	if h.last != nil {
		s.send <- h.last
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.count(n)

	go h.writePump(s)
	h.readPump(s)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, s)
	close(s.send)
	n := len(h.clients)
	h.mu.Unlock()
	h.count(n)
}

func (h *Hub) count(n int) {
	if h.OnCount != nil {
		h.OnCount(n)
	}
}

// readPump discards client frames; it only exists to process control frames
// and notice disconnects.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.remove(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*subscriber]struct{})
	for s := range clients {
		close(s.send)
	}
	h.mu.Unlock()
	h.count(0)
}
