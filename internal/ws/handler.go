// Package ws streams snippet runs over WebSocket connections.
//
// Messages on one connection are handled in order, so at most one run
// is in flight per client, and a transcript is delivered only once its
// run settles.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/infrastructure/monitoring"
	"github.com/rkshawon/interprep/internal/logging"
	"github.com/rkshawon/interprep/internal/shared/id"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/shared/utils"
	"github.com/rkshawon/interprep/internal/snippet"
)

// maxMessageBytes bounds one inbound frame: the source cap plus
// envelope headroom.
const maxMessageBytes = utils.MaxSourceBytes + 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler manages WebSocket connections
type Handler struct {
	evaluator *snippet.Evaluator
	history   *history.Manager // nil when history is disabled
	metrics   *monitoring.Metrics
	logger    *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(evaluator *snippet.Evaluator, historyManager *history.Manager, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		evaluator: evaluator,
		history:   historyManager,
		metrics:   metrics,
		logger:    logger.Named("ws"),
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	connID := uuid.NewString()
	log := h.logger.With(zap.String("conn_id", connID))
	log.Debug("websocket connected", zap.String("remote", c.ClientIP()))

	reqCtx := c.Request.Context()

	// Send welcome message
	h.send(conn, map[string]interface{}{
		"type":    "system",
		"conn_id": connID,
		"message": "connected",
	})

	// Listen for messages
	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read error", zap.Error(err))
			}
			break
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "run":
			h.handleRun(conn, msg, reqCtx)
		case "check":
			h.handleCheck(conn, msg)
		case "ping":
			h.send(conn, map[string]interface{}{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}

	log.Debug("websocket disconnected")
}

func (h *Handler) handleRun(conn *websocket.Conn, msg types.WSMessage, reqCtx context.Context) {
	if err := utils.ValidateSource(msg.Source); err != nil {
		h.sendError(conn, err.Error())
		return
	}
	if msg.SessionID != nil {
		if err := utils.ValidateID(*msg.SessionID, "session_id", false); err != nil {
			h.sendError(conn, err.Error())
			return
		}
	}

	// The ID is announced before the run so the client can correlate
	// the settlement message.
	runID := id.NewRunID().String()
	h.send(conn, map[string]interface{}{
		"type":      "run_started",
		"run_id":    runID,
		"timestamp": time.Now().Unix(),
	})

	outcome, err := h.evaluator.Run(reqCtx, msg.Source)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	if h.history != nil {
		h.history.RecordAs(runID, msg.SessionID, msg.Source, outcome.Output, outcome.OK, outcome.Duration)
	}
	h.metrics.RecordRun("ws", outcome.OK, outcome.Duration, outcome.Lines)

	h.send(conn, map[string]interface{}{
		"type":        "run_complete",
		"run_id":      runID,
		"output":      outcome.Output,
		"ok":          outcome.OK,
		"duration_ms": float64(outcome.Duration.Microseconds()) / 1000.0,
		"lines":       outcome.Lines,
		"timestamp":   time.Now().Unix(),
	})
}

func (h *Handler) handleCheck(conn *websocket.Conn, msg types.WSMessage) {
	if err := utils.ValidateSource(msg.Source); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	resp := map[string]interface{}{"type": "check_result", "ok": true}
	if err := h.evaluator.Check(msg.Source); err != nil {
		resp["ok"] = false
		resp["error"] = err.Error()
	}
	h.send(conn, resp)
}

func (h *Handler) send(conn *websocket.Conn, data map[string]interface{}) error {
	if msgType, ok := data["type"].(string); ok {
		h.metrics.RecordWSMessage("out", msgType)
	}
	return conn.WriteJSON(data)
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
