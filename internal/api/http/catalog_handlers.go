package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/shared/utils"
)

// ListCatalog lists snippet packs
func (h *Handlers) ListCatalog(c *gin.Context) {
	topicStr := c.Query("topic")

	var topic *string
	if topicStr != "" {
		if err := utils.ValidateID(topicStr, "topic", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		topic = &topicStr
	}

	packs := h.catalog.ListMetadata(topic)
	stats := h.catalog.Stats()

	c.JSON(http.StatusOK, gin.H{
		"packs": packs,
		"stats": stats,
	})
}

// GetPack returns one pack with its snippets
func (h *Handlers) GetPack(c *gin.Context) {
	packID := c.Param("id")

	if err := utils.ValidateID(packID, "pack_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pack, err := h.catalog.Load(c.Request.Context(), packID)
	if err != nil {
		if errors.Is(err, catalog.ErrPackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pack not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pack)
}

// SearchCatalog ranks snippets against a text query
func (h *Handlers) SearchCatalog(c *gin.Context) {
	query := c.Query("q")
	if err := utils.ValidateQuery(query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := intQuery(c, "limit", 10)

	matches := h.catalog.Search(query, limit)
	items := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		items = append(items, gin.H{
			"id":    m.PackID + "/" + m.Snippet.ID,
			"pack":  m.PackID,
			"title": m.Snippet.Title,
			"score": m.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"matches": items,
		"count":   len(items),
	})
}

// RunCatalogSnippet executes one cataloged snippet
func (h *Handlers) RunCatalogSnippet(c *gin.Context) {
	packID := c.Param("pack")
	snippetID := c.Param("snippet")

	if err := utils.ValidateID(packID, "pack_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateID(snippetID, "snippet_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	qualified := packID + "/" + snippetID
	snip, pack, err := h.catalog.GetSnippet(c.Request.Context(), qualified)
	if err != nil {
		if errors.Is(err, catalog.ErrPackNotFound) || errors.Is(err, catalog.ErrSnippetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.evaluator.Run(c.Request.Context(), snip.Source)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"id":          qualified,
		"pack":        pack.ID,
		"title":       snip.Title,
		"output":      outcome.Output,
		"ok":          outcome.OK,
		"duration_ms": durationMS(outcome),
	}
	if snip.Expect != "" {
		resp["expected"] = snip.Expect
		resp["matched"] = outcome.Output == snip.Expect
	}
	if h.history != nil {
		resp["run_id"] = h.history.RecordRun(nil, snip.Source, outcome.Output, outcome.OK, outcome.Duration)
	}
	h.metrics.RecordRun("http", outcome.OK, outcome.Duration, outcome.Lines)

	c.JSON(http.StatusOK, resp)
}

// ImportSnippets pulls code blocks from a remote page into the catalog
func (h *Handlers) ImportSnippets(c *gin.Context) {
	if h.importer == nil {
		unavailable(c, "importer is disabled")
		return
	}

	var req types.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.importer.Import(c.Request.Context(), req.URL)
	if err != nil {
		h.metrics.RecordImport("error", 0)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordImport("success", len(report.Imported))
	c.JSON(http.StatusOK, report)
}
