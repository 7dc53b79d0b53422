package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rkshawon/interprep/internal/api/middleware"
	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/importer"
	"github.com/rkshawon/interprep/internal/infrastructure/monitoring"
	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/service"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/shared/utils"
	"github.com/rkshawon/interprep/internal/snippet"
)

const (
	serviceName    = "interprep"
	serviceVersion = "0.3.0"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	evaluator *snippet.Evaluator
	pool      *sandbox.Pool
	registry  *service.Registry
	catalog   *catalog.Manager
	history   *history.Manager   // nil when history is disabled
	importer  *importer.Importer // nil when imports are disabled
	metrics   *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(
	evaluator *snippet.Evaluator,
	pool *sandbox.Pool,
	registry *service.Registry,
	catalogManager *catalog.Manager,
	historyManager *history.Manager,
	imp *importer.Importer,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		evaluator: evaluator,
		pool:      pool,
		registry:  registry,
		catalog:   catalogManager,
		history:   historyManager,
		importer:  imp,
		metrics:   metrics,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"pool":     h.pool.Stats(),
		"services": h.registry.Stats(),
		"catalog":  h.catalog.Stats(),
		"history":  gin.H{"enabled": h.history != nil},
		"importer": gin.H{"enabled": h.importer != nil},
	})
}

// Run evaluates a snippet and returns its transcript
func (h *Handlers) Run(c *gin.Context) {
	var req types.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateSource(req.Source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID != nil {
		if err := utils.ValidateID(*req.SessionID, "session_id", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	outcome, err := h.evaluator.Run(c.Request.Context(), req.Source)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"output":      outcome.Output,
		"ok":          outcome.OK,
		"duration_ms": durationMS(outcome),
		"lines":       outcome.Lines,
	}
	if h.history != nil {
		resp["run_id"] = h.history.RecordRun(req.SessionID, req.Source, outcome.Output, outcome.OK, outcome.Duration)
	}
	h.metrics.RecordRun("http", outcome.OK, outcome.Duration, outcome.Lines)

	c.JSON(http.StatusOK, resp)
}

// Check compiles a snippet without executing it
func (h *Handlers) Check(c *gin.Context) {
	var req types.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateSource(req.Source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A syntax failure is a valid answer, not an HTTP error.
	if err := h.evaluator.Check(req.Source); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	categoryStr := c.Query("category")

	var category *types.Category
	if categoryStr != "" {
		if err := utils.ValidateID(categoryStr, "category", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cat := types.Category(categoryStr)
		category = &cat
	}

	services := h.registry.List(category)
	stats := h.registry.Stats()

	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    stats,
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateToolID(req.ToolID, "tool_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID != nil {
		if err := utils.ValidateID(*req.SessionID, "session_id", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	appCtx := h.executionContext(c, req.SessionID)
	svc, tool := splitTool(req.ToolID)
	timer := monitoring.NewTimer(h.metrics, svc, tool)

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		timer.Stop("error")
		h.metrics.RecordServiceError(svc, tool, "execution")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.Success {
		timer.Stop("success")
	} else {
		timer.Stop("failure")
	}
	c.JSON(http.StatusOK, result)
}

// executionContext carries request identity into providers.
func (h *Handlers) executionContext(c *gin.Context, sessionID *string) *types.Context {
	appCtx := &types.Context{SessionID: sessionID}
	if reqID := middleware.GetRequestID(c); reqID != "" {
		appCtx.RequestID = &reqID
	}
	if ip := c.ClientIP(); ip != "" {
		appCtx.ClientIP = &ip
	}
	return appCtx
}

func splitTool(toolID string) (string, string) {
	parts := strings.SplitN(toolID, ".", 2)
	if len(parts) != 2 {
		return toolID, ""
	}
	return parts[0], parts[1]
}

func durationMS(out *snippet.Outcome) float64 {
	return float64(out.Duration.Microseconds()) / 1000.0
}

func unavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": message})
}
