package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 16
	clientBuffer    = 8
	writeWait       = 10 * time.Second
)

type MessageType string

const (
	MessageLayout MessageType = "layout"
	MessageError  MessageType = "error"
)

type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans messages out to websocket clients. Neither Broadcast nor the fan
// out ever blocks: a full buffer drops the message, and a client that cannot
// keep up is disconnected.
type hub struct {
	metrics   *metrics
	broadcast chan []byte

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(m *metrics) *hub {
	return &hub{
		metrics:   m,
		broadcast: make(chan []byte, broadcastBuffer),
		clients:   map[*client]struct{}{},
	}
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slog.Debug("websocket client too slow, disconnecting")
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("encode broadcast", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.metrics.dropped.Inc()
		slog.Debug("broadcast channel full, dropping message", slog.String("type", string(msg.Type)))
	}
}

// attach registers conn, queues initial and serves the connection until the
// peer goes away.
func (h *hub) attach(conn *websocket.Conn, initial Message) {
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if payload, err := json.Marshal(initial); err == nil {
		c.send <- payload
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.metrics.clients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	slog.Debug("websocket client connected")

	go h.writeLoop(c)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
	slog.Debug("websocket client disconnected")
}

func (h *hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("websocket write", slog.Any("error", err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.clients.Set(float64(len(h.clients)))
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
