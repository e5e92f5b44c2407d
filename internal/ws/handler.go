package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termdock/internal/api/middleware"
	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/shared/id"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	replyBuffer    = 32
)

// Client to server message types.
const (
	MsgInput     = "input"
	MsgResize    = "resize"
	MsgSelection = "selection"
	MsgKey       = "key"
	MsgPaste     = "paste"
	MsgLines     = "lines"
	MsgActivate  = "activate"
	MsgPing      = "ping"
)

// errSuperseded ends a connection whose session was attached elsewhere.
var errSuperseded = errors.New("session attached by another client")

// LinksPayload answers a links request.
type LinksPayload struct {
	Line  int            `json:"line"`
	Links []surface.Link `json:"links"`
}

// Handler manages panel WebSocket connections.
type Handler struct {
	registry *Registry
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler. origins restricts which
// browser origins may connect; empty means loopback only.
func NewHandler(registry *Registry, hub *Hub, origins []string, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(origins) == 0 {
		origins = middleware.LoopbackOrigins
	}
	return &Handler{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(origins, r.Header.Get("Origin"))
			},
		},
		logger:  logger,
		metrics: metrics,
	}
}

// HandleSession attaches a panel to the surface of one session.
func (h *Handler) HandleSession(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	remote, ok := h.registry.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Int("session", sessionID), zap.Error(err))
		return
	}

	clientID := id.NewClientID().String()
	logger := h.logger.With(zap.Int("session", sessionID), zap.String("client", clientID))
	logger.Info("panel attached")

	h.serve(c.Request.Context(), conn, remote, clientID, logger)
	logger.Info("panel detached")
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, remote *Remote, clientID string, logger *zap.Logger) {
	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	att, replay := remote.attach()
	defer remote.detach(att)
	events, unregister := h.hub.Register(clientID)
	defer unregister()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	replies := make(chan types.WSMessage, replyBuffer)

	var wg conc.WaitGroup
	wg.Go(func() {
		defer cancel()
		h.readPump(ctx, conn, remote, replies, logger)
	})
	wg.Go(func() {
		defer cancel()
		defer conn.Close()
		if err := h.writePump(ctx, conn, remote, att, replay, events, replies); err != nil {
			logger.Debug("write pump stopped", zap.Error(err))
		}
	})
	if r := wg.WaitAndRecover(); r != nil {
		logger.Error("websocket pump panicked", zap.String("panic", r.String()))
	}
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, remote *Remote, replies chan<- types.WSMessage, logger *zap.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	reply := func(msg types.WSMessage) {
		select {
		case replies <- msg:
		case <-ctx.Done():
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.dispatch(remote, data, reply)
	}
}

// maxLineIndex bounds line numbers accepted from panels.
const maxLineIndex = 1 << 20

// lineIndex reads a line number, rejecting negative and oversized values.
func lineIndex(v gjson.Result) (int, bool) {
	n := v.Int()
	if n < 0 || n > maxLineIndex {
		return 0, false
	}
	return int(n), true
}

// dispatch routes one client message to the surface.
func (h *Handler) dispatch(remote *Remote, data []byte, reply func(types.WSMessage)) {
	if !gjson.ValidBytes(data) {
		reply(errorMessage("invalid message"))
		return
	}
	msg := gjson.ParseBytes(data)
	typ := msg.Get("type").String()
	h.metrics.RecordWSMessage("in", typ)

	switch typ {
	case MsgInput:
		remote.Input(msg.Get("data").String())
	case MsgPaste:
		remote.Paste(msg.Get("data").String())
	case MsgResize:
		remote.Resize(int(msg.Get("cols").Int()), int(msg.Get("rows").Int()))
	case MsgSelection:
		remote.Select(msg.Get("text").String())
	case MsgKey:
		var ev surface.KeyEvent
		if err := sonic.UnmarshalString(msg.Get("event").Raw, &ev); err != nil {
			reply(errorMessage("invalid key event"))
			return
		}
		if ev.Type == "" {
			ev.Type = surface.KeyDown
		}
		remote.Key(ev)
	case MsgLines:
		start, ok := lineIndex(msg.Get("start"))
		if !ok {
			reply(errorMessage("line out of range"))
			return
		}
		lines := make([]string, 0)
		msg.Get("lines").ForEach(func(_, v gjson.Result) bool {
			lines = append(lines, v.String())
			return true
		})
		remote.SetLines(start, lines)
	case MsgLinks:
		line, ok := lineIndex(msg.Get("line"))
		if !ok {
			reply(errorMessage("line out of range"))
			return
		}
		if text := msg.Get("text"); text.Exists() {
			remote.SetLines(line, []string{text.String()})
		}
		found := remote.LinksAt(line)
		if found == nil {
			found = []surface.Link{}
		}
		reply(types.WSMessage{Type: MsgLinks, Payload: LinksPayload{Line: line, Links: found}})
	case MsgActivate:
		line := int(msg.Get("line").Int())
		index := int(msg.Get("index").Int())
		found := remote.LinksAt(line)
		if index < 0 || index >= len(found) || found[index].Activate == nil {
			reply(errorMessage("no link at position"))
			return
		}
		found[index].Activate()
	case MsgPing:
		reply(types.WSMessage{Type: MsgPong})
	default:
		reply(errorMessage("unknown message type"))
	}
}

func (h *Handler) writePump(
	ctx context.Context,
	conn *websocket.Conn,
	remote *Remote,
	att *attachment,
	replay []types.WSMessage,
	events <-chan types.WSMessage,
	replies <-chan types.WSMessage,
) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for _, m := range replay {
		if err := h.send(conn, m); err != nil {
			return err
		}
	}
	flush := func() error {
		for _, m := range remote.drain() {
			if err := h.send(conn, m); err != nil {
				return err
			}
		}
		return nil
	}
	if err := flush(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			h.close(conn, websocket.CloseNormalClosure, "")
			return ctx.Err()
		case <-remote.Done():
			_ = flush()
			_ = h.send(conn, errorMessage("session closed"))
			h.close(conn, websocket.CloseNormalClosure, "session closed")
			return nil
		case <-att.kicked:
			_ = h.send(conn, errorMessage(errSuperseded.Error()))
			h.close(conn, websocket.ClosePolicyViolation, errSuperseded.Error())
			return errSuperseded
		case <-att.wake:
			if err := flush(); err != nil {
				return err
			}
		case m := <-events:
			if err := h.send(conn, m); err != nil {
				return err
			}
		case m := <-replies:
			if err := h.send(conn, m); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg types.WSMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", msg.Type)
	return nil
}

func (h *Handler) close(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

func errorMessage(text string) types.WSMessage {
	return types.WSMessage{Type: MsgError, Message: text}
}
