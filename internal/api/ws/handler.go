package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/nebula/internal/domain/tabs"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/logging"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
	"github.com/GriffinCanCode/nebula/internal/shared/id"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
)

// Frame types.
const (
	TypeBridge     = "bridge"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeConnected  = "connected"
	TypeNavigation = "navigation"
	TypeIgnored    = "ignored"
	TypeError      = "error"
)

// Frame is a client message. Message carries the raw data the sandboxed
// document posted; it is handed to the bridge untouched.
type Frame struct {
	Type    string          `json:"type"`
	TabID   id.TabID        `json:"tab_id,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Bridges creates one navigation bridge per connection.
type Bridges interface {
	NewBridge() *browser.Bridge
}

// Handler manages bridge WebSocket connections
type Handler struct {
	bridges  Bridges
	tabs     *tabs.Manager
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// Options configures a Handler. Origins lists the shell origins allowed
// to connect; empty or "*" allows any.
type Options struct {
	Bridges Bridges
	Tabs    *tabs.Manager
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
	Origins []string
}

// NewHandler creates a new WebSocket handler
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bridges: opts.Bridges,
		tabs:    opts.Tabs,
		metrics: opts.Metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(opts.Origins),
		},
	}
}

func checkOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws      *websocket.Conn
	id      string
	mu      sync.Mutex
	metrics *monitoring.Metrics
}

func (c *conn) send(v interface{}, msgType string) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msgType)
	}
	return nil
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) sendError(msg string) error {
	return c.send(gin.H{"type": TypeError, "message": msg}, TypeError)
}

// HandleConnection upgrades the request and serves one shell view: bridge
// messages in, navigation results and tab events out.
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	cn := &conn{ws: ws, id: uuid.NewString(), metrics: h.metrics}
	log := h.logger.With(zap.String("conn_id", cn.id))

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	events, unsubscribe := h.tabs.Subscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, cn, events)
	}()
	defer func() {
		cancel()
		unsubscribe()
		wg.Wait()
	}()

	if err := cn.send(gin.H{"type": TypeConnected, "conn_id": cn.id}, TypeConnected); err != nil {
		return
	}
	log.Debug("bridge connected")

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	bridge := h.bridges.NewBridge()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			break
		}

		var frame Frame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			h.record("in", "invalid")
			_ = cn.sendError("invalid frame")
			continue
		}
		h.record("in", frame.Type)

		switch frame.Type {
		case TypeBridge:
			h.handleBridge(ctx, cn, bridge, frame)
		case TypePing:
			_ = cn.send(gin.H{"type": TypePong}, TypePong)
		default:
			_ = cn.sendError("unknown message type")
		}
	}
	log.Debug("bridge disconnected")
}

// handleBridge passes one posted message through the bridge. An accepted
// message navigates the tab it came from, or the active tab when the
// frame names none.
func (h *Handler) handleBridge(ctx context.Context, cn *conn, bridge *browser.Bridge, frame Frame) {
	tabID := frame.TabID
	if tabID == "" {
		tabID = h.tabs.Active().ID
	}

	accepted := bridge.Deliver(ctx, frame.Message, func(ctx context.Context, url string) {
		tab, err := h.tabs.Navigate(ctx, tabID, url)
		if err != nil {
			h.logger.Debug("bridge navigation failed", logging.Tab(tabID.String()), logging.URL(url), zap.Error(err))
			_ = cn.sendError(err.Error())
			return
		}
		_ = cn.send(gin.H{"type": TypeNavigation, "tab_id": tab.ID, "url": tab.URL}, TypeNavigation)
	})
	if !accepted {
		_ = cn.send(gin.H{"type": TypeIgnored, "tab_id": tabID}, TypeIgnored)
	}
}

// writeLoop forwards tab events and keeps the connection alive.
func (h *Handler) writeLoop(ctx context.Context, cn *conn, events <-chan tabs.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := cn.send(ev, string(ev.Type)); err != nil {
				return
			}
		case <-ticker.C:
			if err := cn.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
