package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/uhyunpark/papertrade/pkg/ledger"
)

const (
	// ChannelTrades carries every recorded order.
	ChannelTrades = "trades"
	// ChannelPlayers carries registrations.
	ChannelPlayers = "players"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBuffer      = 256
	broadcastBuffer = 1024
)

// PlayerTradesChannel is the per-player trade channel, "trades:<playerId>".
func PlayerTradesChannel(playerID string) string {
	return ChannelTrades + ":" + playerID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by main server)
		return true
	},
}

type envelope struct {
	channel string
	payload []byte
}

type subscription struct {
	client   *Client
	op       string
	channels []string
}

// Hub maintains active WebSocket connections and fans out registry events.
// Client set and subscriptions are owned by the Run goroutine.
type Hub struct {
	clients map[*Client]map[string]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}

	count atomic.Int64
	log   *zap.SugaredLogger
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]map[string]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled,
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = make(map[string]bool)
			h.count.Add(1)
			h.log.Infow("ws_client_connected", "client", client.id, "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Infow("ws_client_disconnected", "client", client.id, "total", len(h.clients))
			}

		case sub := <-h.subscribe:
			subs, ok := h.clients[sub.client]
			if !ok {
				continue
			}
			for _, channel := range sub.channels {
				if sub.op == "subscribe" {
					subs[channel] = true
				} else {
					delete(subs, channel)
				}
			}
			ack, _ := json.Marshal(SubscriptionAck{Type: sub.op + "d", Channels: sub.channels})
			h.deliver(sub.client, ack)
			h.log.Debugw("ws_subscription", "client", sub.client.id, "op", sub.op, "channels", sub.channels)

		case msg := <-h.broadcast:
			for client, subs := range h.clients {
				if subs[msg.channel] {
					h.deliver(client, msg.payload)
				}
			}
		}
	}
}

// deliver queues payload for client, dropping the client if its buffer is full.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.log.Warnw("ws_client_slow", "client", client.id)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastToChannel sends data to all clients subscribed to channel.
// It never blocks; events are dropped when the hub is backed up.
func (h *Hub) BroadcastToChannel(channel string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Errorw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	select {
	case h.broadcast <- envelope{channel: channel, payload: payload}:
	default:
		h.log.Warnw("ws_broadcast_dropped", "channel", channel)
	}
}

// PlayerRegistered publishes on the players channel.
func (h *Hub) PlayerRegistered(p ledger.Player) {
	h.BroadcastToChannel(ChannelPlayers, PlayerUpdate{Type: "player", PlayerID: p.ID})
}

// OrderRecorded publishes on the global and the per-player trade channels.
func (h *Hub) OrderRecorded(playerID string, seq int, o ledger.Order) {
	update := TradeUpdate{
		Type:     "trade",
		PlayerID: playerID,
		Seq:      seq,
		Symbol:   o.Symbol,
		Side:     o.Side.String(),
		Quantity: o.Quantity,
		T:        o.Time,
	}
	h.BroadcastToChannel(ChannelTrades, update)
	h.BroadcastToChannel(PlayerTradesChannel(playerID), update)
}

var _ ledger.OrderObserver = (*Hub)(nil)

// Client represents a WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// readPump forwards subscription requests from the connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnw("ws_read_failed", "client", c.id, "err", err)
			}
			return
		}

		var req WSSubscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.hub.log.Warnw("ws_invalid_message", "client", c.id, "err", err)
			continue
		}

		switch req.Op {
		case "subscribe", "unsubscribe":
			select {
			case c.hub.subscribe <- subscription{client: c, op: req.Op, channels: req.Channels}:
			case <-c.hub.done:
				return
			}
		default:
			c.hub.log.Warnw("ws_unknown_op", "client", c.id, "op", req.Op)
		}
	}
}

// writePump pumps messages from the hub to the connection, one frame each
func (c *Client) writePump() {
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
				// Hub closed the channel
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

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   conn.RemoteAddr().String(),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
