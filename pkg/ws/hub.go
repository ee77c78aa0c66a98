// Package ws manages the websocket connections of map surfaces. Outbound
// traffic is script evaluation; inbound traffic is the ready signal and
// intercepted navigation attempts.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types exchanged with the map surface.
const (
	MsgTypeEval       = "eval"        // server -> surface: evaluate a script
	MsgTypeReady      = "ready"       // surface -> server: map finished loading
	MsgTypeNavigate   = "navigate"    // surface -> server: intercepted navigation attempt
	MsgTypeNavVerdict = "nav_verdict" // server -> surface: proceed or cancel the navigation
)

// Message is the wire envelope for both directions.
type Message struct {
	Type   string `json:"type"`
	Script string `json:"script,omitempty"`
	URL    string `json:"url,omitempty"`
	Cancel bool   `json:"cancel,omitempty"`
}

// MapGateway is the slice of the native bridge the hub feeds inbound
// messages into.
type MapGateway interface {
	MarkReady()
	Reset()
	HandleNavigation(rawURL string) (cancel bool)
}

// Metrics is the subset of instrumentation the hub reports to.
type Metrics interface {
	SetMapClients(n int)
}

// Client is one connected map surface.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected map surfaces and fans outbound scripts to them.
type Hub struct {
	logger     *zap.Logger
	gateway    MapGateway
	metrics    Metrics // may be nil
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub. SetGateway must be called before Run.
func NewHub(logger *zap.Logger, metrics Metrics) *Hub {
	return &Hub{
		logger:     logger,
		metrics:    metrics,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetGateway wires the bridge the hub delivers inbound messages to. Set once
// during startup, before any client connects.
func (h *Hub) SetGateway(gateway MapGateway) {
	h.gateway = gateway
}

// Run processes register, unregister and broadcast events. Call in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Map surface connected",
				zap.String("client_id", client.id),
				zap.Int("total_clients", total))
			h.reportClients(total)

		case client := <-h.unregister:
			h.mu.Lock()
			total := len(h.clients)
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				total = len(h.clients)
			}
			h.mu.Unlock()
			h.logger.Info("Map surface disconnected",
				zap.String("client_id", client.id),
				zap.Int("total_clients", total))
			h.reportClients(total)

			// The surface that signalled ready is gone; commands queue-drop
			// until the next one loads.
			if total == 0 && h.gateway != nil {
				h.gateway.Reset()
			}

		case message := <-h.broadcast:
			// Eviction mutates the client map, so fan-out needs the write
			// lock even though most broadcasts only read it.
			h.mu.Lock()
			evicted := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					evicted++
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			if evicted > 0 {
				h.logger.Warn("Evicted slow map surfaces", zap.Int("evicted", evicted))
				h.reportClients(total)
				if total == 0 && h.gateway != nil {
					h.gateway.Reset()
				}
			}
		}
	}
}

// Eval fans a script out to every connected map surface.
func (h *Hub) Eval(script string) error {
	data, err := json.Marshal(Message{Type: MsgTypeEval, Script: script})
	if err != nil {
		return err
	}
	h.broadcast <- data
	return nil
}

// ClientCount returns the number of connected map surfaces.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) reportClients(n int) {
	if h.metrics != nil {
		h.metrics.SetMapClients(n)
	}
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// Unregister removes the client from the hub.
func (c *Client) Unregister() {
	c.hub.unregister <- c
}

// ReadPump consumes surface messages until the connection drops. Ready
// signals and navigation attempts go to the gateway; navigation attempts get
// a verdict reply so the surface knows whether to follow the URL.
func (c *Client) ReadPump() {
	defer func() {
		c.Unregister()
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("Ignoring malformed surface message",
				zap.String("client_id", c.id), zap.Error(err))
			continue
		}

		switch msg.Type {
		case MsgTypeReady:
			if c.hub.gateway != nil {
				c.hub.gateway.MarkReady()
			}
		case MsgTypeNavigate:
			cancel := false
			if c.hub.gateway != nil {
				cancel = c.hub.gateway.HandleNavigation(msg.URL)
			}
			c.reply(Message{Type: MsgTypeNavVerdict, URL: msg.URL, Cancel: cancel})
		default:
			c.hub.logger.Debug("Ignoring unknown surface message",
				zap.String("client_id", c.id), zap.String("type", msg.Type))
		}
	}
}

// WritePump drains the send queue onto the connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}

func (c *Client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to marshal reply", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("Dropping reply, client buffer full",
			zap.String("client_id", c.id))
	}
}
