// Package catalog exposes the teaching snippet catalog as service tools.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/snippet"
)

// Recorder receives completed runs for history persistence and hands
// back the assigned run ID.
type Recorder interface {
	RecordRun(sessionID *string, source, output string, ok bool, duration time.Duration) string
}

// Provider implements catalog browsing and execution tools
type Provider struct {
	manager   *domain.Manager
	evaluator *snippet.Evaluator
	recorder  Recorder
}

// NewProvider creates a catalog provider. recorder may be nil when
// history is disabled.
func NewProvider(manager *domain.Manager, evaluator *snippet.Evaluator, recorder Recorder) *Provider {
	return &Provider{
		manager:   manager,
		evaluator: evaluator,
		recorder:  recorder,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "catalog",
		Name:        "Snippet Catalog",
		Description: "Teaching snippet packs with runnable examples",
		Category:    types.CategoryCatalog,
		Capabilities: []string{
			"list",
			"get",
			"run",
			"search",
		},
		Tools: []types.Tool{
			{
				ID:          "catalog.list",
				Name:        "List Packs",
				Description: "List snippet packs, optionally filtered by topic",
				Parameters: []types.Parameter{
					{Name: "topic", Type: "string", Description: "Topic filter", Required: false},
				},
				Returns: "array",
			},
			{
				ID:          "catalog.get",
				Name:        "Get Pack",
				Description: "Load one pack with its snippets",
				Parameters: []types.Parameter{
					{Name: "pack_id", Type: "string", Description: "Pack ID", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "catalog.run",
				Name:        "Run Cataloged Snippet",
				Description: "Execute a snippet by its pack/snippet ID",
				Parameters: []types.Parameter{
					{Name: "id", Type: "string", Description: "Qualified snippet ID (pack/snippet)", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "catalog.search",
				Name:        "Search Snippets",
				Description: "Rank snippets against a text query",
				Parameters: []types.Parameter{
					{Name: "query", Type: "string", Description: "Search terms", Required: true},
					{Name: "limit", Type: "number", Description: "Max results", Required: false},
				},
				Returns: "array",
			},
		},
	}
}

// Execute runs a catalog operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "catalog.list":
		return p.list(params)
	case "catalog.get":
		return p.get(ctx, params)
	case "catalog.run":
		return p.run(ctx, params, appCtx)
	case "catalog.search":
		return p.search(params)
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) list(params map[string]interface{}) (*types.Result, error) {
	var topic *string
	if v, ok := GetString(params, "topic"); ok && v != "" {
		topic = &v
	}

	packs := p.manager.ListMetadata(topic)
	return Success(map[string]interface{}{
		"packs": packs,
		"count": len(packs),
	})
}

func (p *Provider) get(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	packID, ok := GetString(params, "pack_id")
	if !ok || packID == "" {
		return Failure("pack_id required")
	}

	pack, err := p.manager.Load(ctx, packID)
	if err != nil {
		if errors.Is(err, domain.ErrPackNotFound) {
			return Failure(err.Error())
		}
		return Failure(fmt.Sprintf("load pack: %v", err))
	}

	return Success(map[string]interface{}{"pack": pack})
}

func (p *Provider) run(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	qualified, ok := GetString(params, "id")
	if !ok || qualified == "" {
		return Failure("id required")
	}

	snip, pack, err := p.manager.GetSnippet(ctx, qualified)
	if err != nil {
		if errors.Is(err, domain.ErrPackNotFound) || errors.Is(err, domain.ErrSnippetNotFound) {
			return Failure(err.Error())
		}
		return Failure(fmt.Sprintf("load snippet: %v", err))
	}

	outcome, err := p.evaluator.Run(ctx, snip.Source)
	if err != nil {
		return Failure(err.Error())
	}

	data := map[string]interface{}{
		"id":          qualified,
		"pack":        pack.ID,
		"title":       snip.Title,
		"output":      outcome.Output,
		"ok":          outcome.OK,
		"duration_ms": float64(outcome.Duration.Microseconds()) / 1000.0,
	}
	if p.recorder != nil {
		var session *string
		if appCtx != nil {
			session = appCtx.SessionID
		}
		data["run_id"] = p.recorder.RecordRun(session, snip.Source, outcome.Output, outcome.OK, outcome.Duration)
	}
	// Snippets with a recorded expectation also report whether the
	// transcript still matches it.
	if snip.Expect != "" {
		data["expected"] = snip.Expect
		data["matched"] = outcome.Output == snip.Expect
	}
	return Success(data)
}

func (p *Provider) search(params map[string]interface{}) (*types.Result, error) {
	query, ok := GetString(params, "query")
	if !ok || query == "" {
		return Failure("query required")
	}
	limit, _ := GetInt(params, "limit")

	matches := p.manager.Search(query, limit)
	items := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		items = append(items, map[string]interface{}{
			"id":    m.PackID + "/" + m.Snippet.ID,
			"pack":  m.PackID,
			"title": m.Snippet.Title,
			"score": m.Score,
		})
	}
	return Success(map[string]interface{}{
		"matches": items,
		"count":   len(items),
	})
}
