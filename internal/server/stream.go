package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/claude/mapty/internal/session"
	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub fans session snapshots out to every connected page.
type hub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	send chan []byte
}

func newHub() *hub {
	return &hub{clients: map[*streamClient]struct{}{}}
}

func (h *hub) register() *streamClient {
	c := &streamClient{send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast never blocks: a client whose buffer is full misses the update
// and catches up with the next one.
func (h *hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// publish must be called with the controller held so that streams see
// updates in event order.
func (s *Server) publish(c *session.Controller) {
	if s.hub.len() == 0 {
		return
	}
	data, err := json.Marshal(s.sessionState(c))
	if err != nil {
		s.log.Error("encoding session update", "error", err)
		return
	}
	s.hub.broadcast(data)
}

// handleStream upgrades to a websocket, sends the current session and then
// every change until the page goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var (
		client  *streamClient
		initial []byte
	)
	s.actor.Do(func(c *session.Controller) error {
		client = s.hub.register()
		initial, err = json.Marshal(s.sessionState(c))
		return nil
	})
	defer s.hub.unregister(client)
	if err != nil {
		s.log.Error("encoding session", "error", err)
		return
	}

	// The page never sends anything; reading only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	msg := initial
	for {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.log.Debug("stream closed", "error", err)
			return
		}

		var ok bool
		select {
		case msg, ok = <-client.send:
			if !ok {
				return
			}
		case <-closed:
			return
		}
	}
}
