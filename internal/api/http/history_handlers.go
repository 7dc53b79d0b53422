package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/shared/utils"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ListHistory returns recorded runs, newest first
func (h *Handlers) ListHistory(c *gin.Context) {
	if h.history == nil {
		unavailable(c, "history is disabled")
		return
	}

	filter := history.Filter{
		Limit:  intQuery(c, "limit", defaultHistoryLimit),
		Offset: intQuery(c, "offset", 0),
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}

	if session := c.Query("session_id"); session != "" {
		if err := utils.ValidateID(session, "session_id", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.SessionID = &session
	}
	if okStr := c.Query("ok"); okStr != "" {
		ok, err := strconv.ParseBool(okStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ok must be true or false"})
			return
		}
		filter.OK = &ok
	}

	runs, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one recorded run
func (h *Handlers) GetRun(c *gin.Context) {
	if h.history == nil {
		unavailable(c, "history is disabled")
		return
	}

	runID := c.Param("id")
	if err := utils.ValidateID(runID, "run_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.history.Get(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// HistoryStats returns run aggregates
func (h *Handlers) HistoryStats(c *gin.Context) {
	if h.history == nil {
		unavailable(c, "history is disabled")
		return
	}

	stats, err := h.history.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportHistory streams the full history as gzipped JSON
func (h *Handlers) ExportHistory(c *gin.Context) {
	if h.history == nil {
		unavailable(c, "history is disabled")
		return
	}

	filename := "history-" + time.Now().Format("20060102") + ".json.gz"
	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.history.Export(c.Request.Context(), c.Writer); err != nil {
		// Too late for a JSON error once the body started; surface the
		// failure through the status code.
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}

// PruneHistory trims old run records
func (h *Handlers) PruneHistory(c *gin.Context) {
	if h.history == nil {
		unavailable(c, "history is disabled")
		return
	}

	var req types.PruneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.KeepLast <= 0 && req.MaxAgeH <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keep_last or max_age_hours required"})
		return
	}

	removed, err := h.history.Prune(c.Request.Context(), req.KeepLast, time.Duration(req.MaxAgeH)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
	})
}

// intQuery parses an integer query parameter, falling back to def on
// absence or garbage.
func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
