// Package history exposes recorded snippet runs as service tools.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/shared/types"
)

// Provider serves queries over recorded snippet runs.
type Provider struct {
	manager *domain.Manager
}

// NewProvider creates a history provider backed by the given manager.
func NewProvider(manager *domain.Manager) *Provider {
	return &Provider{manager: manager}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "history",
		Name:         "Run History",
		Description:  "Query, inspect, and prune recorded snippet runs",
		Category:     types.CategoryHistory,
		Capabilities: []string{"list", "get", "stats", "prune"},
		Tools: []types.Tool{
			{
				ID:          "history.list",
				Name:        "List Runs",
				Description: "List recorded runs, newest first",
				Parameters: []types.Parameter{
					{Name: "session_id", Type: "string", Description: "Only runs from this session", Required: false},
					{Name: "ok", Type: "boolean", Description: "Only runs with this outcome", Required: false},
					{Name: "limit", Type: "number", Description: "Maximum records to return", Required: false},
					{Name: "offset", Type: "number", Description: "Records to skip", Required: false},
				},
			},
			{
				ID:          "history.get",
				Name:        "Get Run",
				Description: "Fetch a single run record by ID",
				Parameters: []types.Parameter{
					{Name: "id", Type: "string", Description: "Run record ID", Required: true},
				},
			},
			{
				ID:          "history.stats",
				Name:        "Run Statistics",
				Description: "Outcome counts and duration percentiles across all runs",
				Parameters:  []types.Parameter{},
			},
			{
				ID:          "history.prune",
				Name:        "Prune Runs",
				Description: "Delete old run records",
				Parameters: []types.Parameter{
					{Name: "keep_last", Type: "number", Description: "Keep only this many newest records", Required: false},
					{Name: "max_age_hours", Type: "number", Description: "Delete records older than this many hours", Required: false},
				},
			},
		},
	}
}

// Execute runs a history tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "history.list":
		return p.list(ctx, params)
	case "history.get":
		return p.get(ctx, params)
	case "history.stats":
		return p.stats(ctx)
	case "history.prune":
		return p.prune(ctx, params)
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) list(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	filter := domain.Filter{}
	if session, ok := GetString(params, "session_id"); ok && session != "" {
		filter.SessionID = &session
	}
	if outcome, ok := GetBool(params, "ok"); ok {
		filter.OK = &outcome
	}
	if limit, ok := GetInt(params, "limit"); ok {
		filter.Limit = limit
	}
	if offset, ok := GetInt(params, "offset"); ok {
		filter.Offset = offset
	}

	records, err := p.manager.List(ctx, filter)
	if err != nil {
		return Failure(fmt.Sprintf("list runs: %v", err))
	}
	return Success(map[string]interface{}{
		"runs":  records,
		"count": len(records),
	})
}

func (p *Provider) get(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	recordID, ok := GetString(params, "id")
	if !ok || recordID == "" {
		return Failure("id must be a non-empty string")
	}

	record, err := p.manager.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Failure(err.Error())
		}
		return Failure(fmt.Sprintf("get run: %v", err))
	}
	return Success(map[string]interface{}{"run": record})
}

func (p *Provider) stats(ctx context.Context) (*types.Result, error) {
	stats, err := p.manager.Stats(ctx)
	if err != nil {
		return Failure(fmt.Sprintf("run stats: %v", err))
	}
	return Success(map[string]interface{}{"stats": stats})
}

func (p *Provider) prune(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	keepLast, _ := GetInt(params, "keep_last")
	hours, _ := GetInt(params, "max_age_hours")
	if keepLast <= 0 && hours <= 0 {
		return Failure("prune needs keep_last or max_age_hours")
	}

	removed, err := p.manager.Prune(ctx, keepLast, time.Duration(hours)*time.Hour)
	if err != nil {
		return Failure(fmt.Sprintf("prune runs: %v", err))
	}
	return Success(map[string]interface{}{"removed": removed})
}
