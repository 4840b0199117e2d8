// Package ws pushes cart snapshots to the visitor's open WebSocket
// connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/server/middleware"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64

	// channelPrefix namespaces cart updates on the signal bus.
	channelPrefix = "cart:"
)

// upgrader configures the WebSocket upgrade parameters. Origin checks are
// left to the CORS middleware in front of the hub.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Envelope is the frame sent to clients.
type Envelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Payload domain.CartView `json:"payload"`
}

// SnapshotFunc returns the current cart of a session, used to greet a newly
// connected client.
type SnapshotFunc func(ctx context.Context, session string) (domain.CartView, error)

// client represents a single WebSocket connection.
type client struct {
	hub     *Hub
	conn    *websocket.Conn
	session string
	send    chan []byte
}

// delivery is an encoded envelope addressed to one session.
type delivery struct {
	session string
	data    []byte
}

// Hub routes cart updates to the connections of the session they belong to.
// With a signal bus, updates travel through it so every instance of the
// service sees them; without one they are delivered locally.
type Hub struct {
	clients    map[string]map[*client]bool
	deliver    chan delivery
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	snapshot   SnapshotFunc
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub. bus and snapshot may be nil.
func NewHub(bus domain.SignalBus, snapshot SnapshotFunc, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		snapshot:   snapshot,
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Publish sends a cart snapshot to every connection of the session. It never
// blocks on slow clients.
func (h *Hub) Publish(session string, view domain.CartView) {
	data, err := json.Marshal(Envelope{Type: "cart", Session: session, Payload: view})
	if err != nil {
		h.logger.Error("ws: encode envelope", slog.String("error", err.Error()))
		return
	}

	if h.bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		err := h.bus.Publish(ctx, channelPrefix+session, data)
		if err == nil {
			return
		}
		h.logger.Warn("ws: publish failed, delivering locally", slog.String("error", err.Error()))
	}
	h.enqueue(delivery{session: session, data: data})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliver <- d:
	default:
		h.logger.Warn("ws: dropping update, hub backlog full", slog.String("session", d.session))
	}
}

// Run starts the hub's main event loop. It handles client registration,
// unregistration and delivery until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	if h.bus != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]bool)
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.session]
			if !ok {
				set = make(map[*client]bool)
				h.clients[c.session] = set
			}
			set[c] = true
			h.mu.Unlock()
			h.logger.Debug("ws: client connected", slog.String("session", c.session))

		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[c.session]; ok && set[c] {
				delete(set, c)
				close(c.send)
				if len(set) == 0 {
					delete(h.clients, c.session)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("ws: client disconnected", slog.String("session", c.session))

		case d := <-h.deliver:
			h.mu.RLock()
			for c := range h.clients[d.session] {
				select {
				case c.send <- d.data:
				default:
					h.logger.Warn("ws: dropping message for slow client", slog.String("session", d.session))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribe forwards cart updates from the signal bus to local clients.
func (h *Hub) subscribe(ctx context.Context) {
	msgCh, err := h.bus.Subscribe(ctx, channelPrefix+"*")
	if err != nil {
		h.logger.Error("ws: failed to subscribe to cart updates", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: cart subscription closed")
				return
			}
			var head struct {
				Session string `json:"session"`
			}
			if err := json.Unmarshal(data, &head); err != nil || head.Session == "" {
				continue
			}
			h.enqueue(delivery{session: head.Session, data: data})
		}
	}
}

// ClientCount returns the number of connections of a session.
func (h *Hub) ClientCount(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[session])
}

// HandleWS upgrades an HTTP request to a WebSocket connection bound to the
// request's session and greets it with the current cart.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionID(r.Context())
	if session == "" {
		http.Error(w, `{"error":"no session"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		session: session,
		send:    make(chan []byte, sendBufferSize),
	}
	c.greet(r.Context())
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// greet queues the session's current cart for a new client.
func (c *client) greet(ctx context.Context) {
	if c.hub.snapshot == nil {
		return
	}
	view, err := c.hub.snapshot(ctx, c.session)
	if err != nil {
		c.hub.logger.Warn("ws: snapshot failed", slog.String("error", err.Error()))
		return
	}
	data, err := json.Marshal(Envelope{Type: "cart", Session: c.session, Payload: view})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump drains the connection so control frames are processed. Clients
// have nothing to say; any text they send is ignored.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection as text
// frames and sends periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
