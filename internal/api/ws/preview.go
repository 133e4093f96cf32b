// Package ws provides live expression preview over WebSocket.
//
// A preview session pins one sandbox runtime for its lifetime and
// re-evaluates expressions as the client types. Each evaluation still
// gets a fresh proxy scope, so edits never see stale cached data, while
// the compile cache absorbs the per-keystroke recompiles.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/exprbox/exprbox/internal/engine"
	"github.com/exprbox/exprbox/internal/infrastructure/logging"
	"github.com/exprbox/exprbox/internal/infrastructure/monitoring"
	"github.com/exprbox/exprbox/internal/resolver"
	"github.com/exprbox/exprbox/internal/sandbox"
	"github.com/exprbox/exprbox/internal/shared/id"
)

// clientMessage is what preview clients send.
type clientMessage struct {
	Type        string `json:"type"`
	ExecutionID string `json:"executionId,omitempty"`
	Expression  string `json:"expression,omitempty"`
	ItemIndex   *int   `json:"itemIndex,omitempty"`
}

// serverMessage is what the preview sends back.
type serverMessage struct {
	Type       string             `json:"type"`
	SessionID  string             `json:"sessionId,omitempty"`
	Message    string             `json:"message,omitempty"`
	ID         string             `json:"id,omitempty"`
	Value      any                `json:"value,omitempty"`
	Console    []sandbox.LogEntry `json:"console,omitempty"`
	DurationMS float64            `json:"durationMs,omitempty"`
	Kind       string             `json:"kind,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Handler serves preview sessions.
type Handler struct {
	engine      *engine.Engine
	pool        *sandbox.Pool
	store       *resolver.Store
	logger      *logging.Logger
	metrics     *monitoring.Metrics
	envPatterns []string
	upgrader    websocket.Upgrader
}

// NewHandler creates the preview handler.
func NewHandler(
	eng *engine.Engine,
	pool *sandbox.Pool,
	store *resolver.Store,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
	envPatterns []string,
) *Handler {
	return &Handler{
		engine:      eng,
		pool:        pool,
		store:       store,
		logger:      logger.Named("preview"),
		metrics:     metrics,
		envPatterns: envPatterns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the connection and runs the session loop.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := id.NewSessionID()
	h.metrics.PreviewSessions.Inc()
	defer h.metrics.PreviewSessions.Dec()

	rt, err := h.pool.Acquire(c.Request.Context())
	if err != nil {
		h.send(conn, serverMessage{Type: "error", Kind: string(engine.KindUnavailable), Error: err.Error()})
		return
	}
	defer h.pool.Release(rt)

	h.logger.Info("preview session opened", zap.String("session", sessionID.String()))
	h.send(conn, serverMessage{
		Type:      "system",
		SessionID: sessionID.String(),
		Message:   "preview session ready",
	})

	var snap *resolver.Snapshot
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("preview session aborted",
					zap.String("session", sessionID.String()),
					zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "bind":
			snap = h.handleBind(conn, msg)
		case "evaluate":
			h.handleEvaluate(c, conn, rt, snap, msg)
		case "ping":
			h.send(conn, serverMessage{Type: "pong"})
		default:
			h.send(conn, serverMessage{
				Type:  "error",
				Error: "unknown message type: " + msg.Type,
			})
		}
	}
}

func (h *Handler) handleBind(conn *websocket.Conn, msg clientMessage) *resolver.Snapshot {
	snap, ok := h.store.Get(msg.ExecutionID)
	if !ok {
		h.send(conn, serverMessage{
			Type:  "error",
			Error: "unknown execution " + msg.ExecutionID,
		})
		return nil
	}

	h.send(conn, serverMessage{
		Type:    "system",
		Message: "bound to " + msg.ExecutionID,
	})
	return snap
}

func (h *Handler) handleEvaluate(
	c *gin.Context,
	conn *websocket.Conn,
	rt sandbox.Evaluator,
	snap *resolver.Snapshot,
	msg clientMessage,
) {
	if snap == nil {
		h.send(conn, serverMessage{Type: "error", Error: "no execution bound; send bind first"})
		return
	}

	opts := []resolver.Option{resolver.WithEnvPatterns(h.envPatterns)}
	if msg.ItemIndex != nil {
		opts = append(opts, resolver.WithItemIndex(*msg.ItemIndex))
	}

	eval, err := h.engine.EvaluateOn(c.Request.Context(), rt, engine.Request{
		Expression: msg.Expression,
		Calls:      resolver.New(snap, opts...),
	})
	if err != nil {
		h.send(conn, serverMessage{
			Type:  "error",
			Kind:  string(engine.KindOf(err)),
			Error: err.Error(),
		})
		return
	}

	h.send(conn, serverMessage{
		Type:       "result",
		ID:         eval.ID.String(),
		Value:      eval.Value,
		Console:    eval.Console,
		DurationMS: float64(eval.Duration.Microseconds()) / 1000.0,
	})
}

func (h *Handler) send(conn *websocket.Conn, msg serverMessage) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("preview send failed", zap.Error(err))
	}
}
