package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	"locova/internal/domain/identity"
	engagementService "locova/internal/service/engagement"
	"locova/internal/service/places"
	"locova/internal/service/realtime"
	"locova/internal/service/trends"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Outgoing messages buffered per client before new ones are dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     64,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are restricted by the CORS layer
		return true
	},
}

// Live feed message types
const (
	msgView        = "view"
	msgRefresh     = "refresh"
	msgPlaceSearch = "place_search"
	msgSnapshot    = "snapshot"
	msgThread      = "thread"
	msgPlaces      = "places"
	msgError       = "error"
)

type incomingMessage struct {
	Type   string   `json:"type"`
	IDs    []string `json:"ids,omitempty"`
	Thread string   `json:"thread,omitempty"`
	Query  string   `json:"query,omitempty"`
}

type outgoingMessage struct {
	Type    string             `json:"type"`
	Kind    engagement.Kind    `json:"kind,omitempty"`
	Entries []engagement.Entry `json:"entries,omitempty"`
	Thread  *trends.Thread     `json:"thread,omitempty"`
	Query   string             `json:"query,omitempty"`
	Places  []places.Place     `json:"places,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// LiveHandler serves the live feed: a client declares which trends it shows
// and which thread is open, and receives fresh snapshots whenever the
// underlying engagement changes
type LiveHandler struct {
	engagement *engagementService.Service
	trends     *trends.Service
	trigger    *realtime.Trigger
	places     *places.Client
	debounce   time.Duration
	config     WebSocketConfig
	logger     *logrus.Logger
}

// NewLiveHandler creates a new live feed handler
func NewLiveHandler(
	engagement *engagementService.Service,
	trends *trends.Service,
	trigger *realtime.Trigger,
	placesClient *places.Client,
	placesDebounce time.Duration,
	config WebSocketConfig,
	logger *logrus.Logger,
) *LiveHandler {
	return &LiveHandler{
		engagement: engagement,
		trends:     trends,
		trigger:    trigger,
		places:     placesClient,
		debounce:   placesDebounce,
		config:     config,
		logger:     logger,
	}
}

// liveClient is one connected screen
type liveClient struct {
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	session    identity.Session
	handler    *LiveHandler
	searcher   *places.Searcher
	attachment *realtime.Attachment
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once

	mu     sync.Mutex
	ids    []string
	thread string
}

// ServeHTTP upgrades the connection and runs the client until it disconnects
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}

	// The feed outlives request-scoped deadlines
	ctx, cancel := context.WithCancel(context.Background())

	client := &liveClient{
		conn:     conn,
		send:     make(chan []byte, h.config.SendBuffer),
		done:     make(chan struct{}),
		session:  identity.FromContext(r.Context()),
		handler:  h,
		searcher: places.NewSearcher(h.places, h.debounce),
		ctx:      ctx,
		cancel:   cancel,
	}

	attachment, err := h.trigger.Attach(ctx, client)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to attach live feed")
		client.enqueue(outgoingMessage{Type: msgError, Error: "Live updates unavailable"})
		go client.writePump()
		client.close()
		return
	}
	client.attachment = attachment

	h.logger.WithField("user_id", client.session.UserID).Debug("Live feed connected")

	go client.writePump()
	client.readPump()
}

// readPump processes client messages until the connection fails
func (c *liveClient) readPump() {
	config := c.handler.config

	defer c.close()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.handler.logger.WithError(err).Debug("WebSocket error")
			}
			return
		}

		c.processIncomingMessage(message)
	}
}

// writePump writes queued messages and keepalive pings
func (c *liveClient) writePump() {
	config := c.handler.config
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// flush writes whatever is still queued
func (c *liveClient) flush() {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.handler.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *liveClient) processIncomingMessage(message []byte) {
	var msg incomingMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.enqueue(outgoingMessage{Type: msgError, Error: "Malformed message"})
		return
	}

	switch msg.Type {
	case msgView:
		c.mu.Lock()
		c.ids = uniqueIDs(msg.IDs)
		c.thread = msg.Thread
		c.mu.Unlock()

		c.RefreshSnapshot(c.ctx)
		if msg.Thread != "" {
			c.RefreshThread(c.ctx, msg.Thread)
		}

	case msgRefresh:
		c.RefreshSnapshot(c.ctx)
		if trendID, ok := c.OpenThread(); ok {
			c.RefreshThread(c.ctx, trendID)
		}

	case msgPlaceSearch:
		query := msg.Query
		c.searcher.Submit(c.ctx, query, func(results []places.Place, err error) {
			if err != nil {
				c.enqueue(outgoingMessage{Type: msgError, Error: "Place search failed"})
				return
			}
			c.enqueue(outgoingMessage{Type: msgPlaces, Query: query, Places: results})
		})

	default:
		c.enqueue(outgoingMessage{Type: msgError, Error: "Unknown message type"})
	}
}

// RefreshSnapshot rebuilds the snapshot for the trends on screen. On
// failure the client keeps its previous snapshot.
func (c *liveClient) RefreshSnapshot(ctx context.Context) error {
	c.mu.Lock()
	ids := append([]string(nil), c.ids...)
	c.mu.Unlock()

	snapshot, err := c.handler.engagement.Snapshot(ctx, c.session, engagement.KindTrend, ids)
	if err != nil {
		c.enqueue(outgoingMessage{Type: msgError, Error: "Snapshot refresh failed"})
		return err
	}

	c.enqueue(outgoingMessage{Type: msgSnapshot, Kind: engagement.KindTrend, Entries: snapshot.Entries(ids)})
	return nil
}

// OpenThread returns the trend whose comments are on screen
func (c *liveClient) OpenThread() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread, c.thread != ""
}

// RefreshThread refetches the open comment thread
func (c *liveClient) RefreshThread(ctx context.Context, trendID string) error {
	thread, err := c.handler.trends.Thread(ctx, c.session, trendID)
	if err != nil {
		c.enqueue(outgoingMessage{Type: msgError, Error: "Thread refresh failed"})
		return err
	}

	c.enqueue(outgoingMessage{Type: msgThread, Thread: thread})
	return nil
}

// enqueue queues msg for the write pump. Messages for a closed or saturated
// client are dropped.
func (c *liveClient) enqueue(msg outgoingMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.handler.logger.WithError(err).Error("Failed to marshal live message")
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.handler.logger.WithField("type", msg.Type).Warn("Dropping live message for slow client")
	}
}

// close tears down subscriptions, pending searches and the connection
func (c *liveClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		if c.attachment != nil {
			c.attachment.Detach()
		}
		c.searcher.Stop()

		// Give the write pump a moment to flush before closing
		time.AfterFunc(c.handler.config.WriteWait/10, func() { c.conn.Close() })

		c.handler.logger.WithField("user_id", c.session.UserID).Debug("Live feed closed")
	})
}
