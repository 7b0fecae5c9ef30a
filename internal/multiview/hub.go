package multiview

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"multiview/internal/platform/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Hub fans controller messages out to every connected render layer and
// hands inbound client messages to a callback.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}

	// origins lists the browser origins allowed besides the server's own host.
	origins  []string
	upgrader websocket.Upgrader

	// onMessage handles an inbound frame; it runs on the client's read goroutine.
	onMessage func(clientID string, msg []byte)
	// onJoin returns the frames a newly registered client receives first.
	onJoin func() [][]byte
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a hub. Call Run to start delivering messages.
func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	h := &Hub{
		log:        log,
		metrics:    m,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 128),
		register:   make(chan *client, 32),
		unregister: make(chan *client, 32),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// AllowOrigins permits cross-origin upgrades from the given origins; "*"
// permits any. Requests without an Origin header and same-host requests are
// always allowed. It must be called before Run.
func (h *Hub) AllowOrigins(origins ...string) { h.origins = origins }

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
			return true
		}
	}
	h.log.Warn("websocket origin rejected", "origin", origin)
	return false
}

// OnMessage sets the inbound message handler. It must be called before Run.
func (h *Hub) OnMessage(fn func(clientID string, msg []byte)) { h.onMessage = fn }

// OnJoin sets the greeting producer. It must be called before Run.
func (h *Hub) OnJoin(fn func() [][]byte) { h.onJoin = fn }

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("hub queue full, message dropped", "size", len(msg))
	}
}

// Send implements player.Sender.
func (h *Hub) Send(msg []byte) { h.Broadcast(msg) }

// Run delivers messages until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
		for {
			select {
			case c := <-h.register:
				close(c.send)
			default:
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.register:
			h.clients[c] = true
			h.setClients()
			h.log.Info("client connected", "client_id", c.id)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.log.Info("client disconnected", "client_id", c.id)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.drop(c)
					h.log.Warn("slow client dropped", "client_id", c.id)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.setClients()
}

func (h *Hub) setClients() {
	if h.metrics != nil {
		h.metrics.SetConnectedClients(len(h.clients))
	}
}

// ServeWS upgrades the request and serves one client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "hub stopped", http.StatusServiceUnavailable)
		return
	default:
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if h.onJoin != nil {
		for _, msg := range h.onJoin() {
			select {
			case c.send <- msg:
			default:
			}
		}
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// leave hands c to Run for removal; once Run has returned there is nothing
// to remove it from.
func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}
		if c.hub.onMessage != nil {
			c.hub.onMessage(c.id, msg)
		}
	}
}

func (c *client) writePump() {
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
