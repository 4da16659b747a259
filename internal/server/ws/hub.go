// Package ws bridges the signal bus to WebSocket clients so dashboards learn
// about catalog refreshes without polling.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketlens/internal/catalog"
	"github.com/alanyoungcy/marketlens/internal/domain"
	"github.com/alanyoungcy/marketlens/internal/screener"
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
	sendBufferSize = 256

	// screenerTarget caps how many markets a live screener pass runs over.
	screenerTarget = 1000
)

// defaultChannels are the signal bus channels the hub subscribes to.
var defaultChannels = []string{
	catalog.RefreshedChannel,
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the HTTP layer.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	subs   map[string]bool
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	rc     *screener.Recomputer
}

// inboundMsg is the JSON envelope a client sends: channel subscription
// management, or a screener filter state for live recomputation.
type inboundMsg struct {
	Subscribe   []string              `json:"subscribe"`
	Unsubscribe []string              `json:"unsubscribe"`
	Filters     *screener.FilterState `json:"filters"`
}

// MarketSource supplies the market list live screener passes run over.
type MarketSource interface {
	Markets(ctx context.Context, target int) ([]domain.Market, domain.Freshness, error)
}

// Hub manages a set of connected WebSocket clients and broadcasts messages
// from the signal bus to all subscribed clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	markets    MarketSource
	books      domain.BookCache
	mu         sync.RWMutex
	logger     *slog.Logger
	startedAt  time.Time
}

// broadcastMsg carries a message along with its source channel so the hub
// can route it only to clients subscribed to that channel.
type broadcastMsg struct {
	channel string
	data    []byte
}

// NewHub creates a new WebSocket hub that bridges a SignalBus to connected
// WebSocket clients.
func NewHub(bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger,
		startedAt:  time.Now().UTC(),
	}
}

// WithScreener enables per-connection screener recomputation: clients send
// filter states over the socket and receive debounced result frames. books
// may be nil to disable book-derived predicates.
func (h *Hub) WithScreener(markets MarketSource, books domain.BookCache) *Hub {
	h.markets = markets
	h.books = books
	return h
}

// Run starts the hub's main event loop. It should be called in a goroutine.
// The loop exits when the provided context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range defaultChannels {
		go h.subscribeToChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.channel) {
					select {
					case c.send <- msg.data:
					default:
						h.logger.Warn("ws: dropping message for slow client")
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToChannel subscribes to a single signal bus channel and forwards
// received messages to the hub's broadcast channel.
func (h *Hub) subscribeToChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: failed to subscribe to channel",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("ws: subscribed to channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: channel subscription closed",
					slog.String("channel", channel),
				)
				return
			}
			h.broadcast <- broadcastMsg{
				channel: channel,
				data:    data,
			}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	// The connection outlives the handler after the upgrade hijacks it, so
	// the client carries its own context rather than the request's.
	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		subs:   make(map[string]bool),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, ch := range defaultChannels {
		c.subs[ch] = true
	}

	h.register <- c
	c.sendInitialStatus()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads messages from the WebSocket connection. It handles
// subscription management requests (JSON text frames) from the client.
func (c *client) readPump() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg inboundMsg
		if jsonErr := json.Unmarshal(message, &msg); jsonErr != nil {
			continue
		}
		if len(msg.Subscribe) > 0 || len(msg.Unsubscribe) > 0 {
			c.handleSubscription(msg)
		}
		if msg.Filters != nil {
			c.submitFilters(*msg.Filters)
		}
	}
}

// handleSubscription processes subscribe/unsubscribe requests from the client.
func (c *client) handleSubscription(msg inboundMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range msg.Subscribe {
		c.subs[ch] = true
	}
	for _, ch := range msg.Unsubscribe {
		delete(c.subs, ch)
	}
}

// submitFilters feeds one filter state into the client's recomputer. The
// recomputer debounces keystroke bursts and cancels superseded passes; the
// surviving pass is pushed back as a screener frame.
func (c *client) submitFilters(state screener.FilterState) {
	if c.hub.markets == nil {
		return
	}
	if !screener.ValidSortField(state.SortField) {
		return
	}
	c.startRecomputer()

	markets, _, err := c.hub.markets.Markets(c.ctx, screenerTarget)
	if err != nil {
		c.hub.logger.Warn("ws: screener market load failed",
			slog.String("error", err.Error()),
		)
		return
	}

	var books map[string]*domain.BookSummary
	if state.NeedsBook() && c.hub.books != nil {
		books = c.gatherBooks(markets)
	}

	c.rc.Submit(screener.Input{Markets: markets, State: state, Books: books})
}

// gatherBooks loads cached summaries for each market's primary token.
// Tokens without a cached summary stay absent; book predicates exclude
// those markets.
func (c *client) gatherBooks(markets []domain.Market) map[string]*domain.BookSummary {
	books := make(map[string]*domain.BookSummary)
	for i := range markets {
		tokenID := markets[i].PrimaryTokenID()
		if tokenID == "" {
			continue
		}
		if sum, err := c.hub.books.GetBook(c.ctx, tokenID); err == nil {
			books[tokenID] = sum
		}
	}
	return books
}

func (c *client) startRecomputer() {
	if c.rc != nil {
		return
	}
	c.rc = screener.NewRecomputer(screener.DefaultDebounce)
	go c.rc.Run(c.ctx)
	go c.forwardResults()
}

// forwardResults pushes completed screener passes to the client as JSON
// frames until the connection closes.
func (c *client) forwardResults() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case res := <-c.rc.Results():
			if res.Err != nil {
				continue
			}
			msg, err := json.Marshal(map[string]any{
				"type": "screener",
				"payload": map[string]any{
					"markets": res.Markets,
					"visible": len(res.Markets),
				},
			})
			if err != nil {
				continue
			}
			select {
			case c.send <- msg:
			default:
			}
		}
	}
}

// sendInitialStatus pushes a small JSON envelope so clients can immediately
// mark the connection as healthy even before the first refresh announcement.
func (c *client) sendInitialStatus() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "status",
		"payload": map[string]any{
			"ws_connected":   true,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// isSubscribed checks whether the client is subscribed to the given channel.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

// writePump pumps messages from the hub to the WebSocket connection and
// sends periodic ping frames for keepalive.
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
