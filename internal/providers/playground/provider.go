// Package playground exposes sandboxed snippet evaluation as service tools.
package playground

import (
	"context"
	"fmt"
	"time"

	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/snippet"
)

// Recorder receives completed runs for history persistence and hands
// back the assigned run ID.
type Recorder interface {
	RecordRun(sessionID *string, source, output string, ok bool, duration time.Duration) string
}

// Provider implements snippet evaluation tools
type Provider struct {
	evaluator *snippet.Evaluator
	pool      *sandbox.Pool
	recorder  Recorder
}

// NewProvider creates a playground provider. recorder may be nil when
// history is disabled.
func NewProvider(evaluator *snippet.Evaluator, pool *sandbox.Pool, recorder Recorder) *Provider {
	return &Provider{
		evaluator: evaluator,
		pool:      pool,
		recorder:  recorder,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "playground",
		Name:        "Snippet Playground",
		Description: "Sandboxed JavaScript snippet evaluation",
		Category:    types.CategoryPlayground,
		Capabilities: []string{
			"run",
			"check",
			"stats",
		},
		Tools: []types.Tool{
			{
				ID:          "playground.run",
				Name:        "Run Snippet",
				Description: "Execute a snippet and return its transcript",
				Parameters: []types.Parameter{
					{Name: "source", Type: "string", Description: "Snippet source", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "playground.check",
				Name:        "Check Snippet",
				Description: "Compile a snippet without executing it",
				Parameters: []types.Parameter{
					{Name: "source", Type: "string", Description: "Snippet source", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "playground.stats",
				Name:        "Pool Stats",
				Description: "Runtime pool utilization",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a playground operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "playground.run":
		return p.run(ctx, params, appCtx)
	case "playground.check":
		return p.check(params)
	case "playground.stats":
		return p.stats()
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) run(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	// An empty source is a valid snippet, so only the type is checked.
	source, ok := params["source"].(string)
	if !ok {
		return failure("source must be a string")
	}

	outcome, err := p.evaluator.Run(ctx, source)
	if err != nil {
		return failure(err.Error())
	}

	data := map[string]interface{}{
		"output":      outcome.Output,
		"ok":          outcome.OK,
		"duration_ms": durationMS(outcome.Duration),
		"lines":       outcome.Lines,
	}
	if p.recorder != nil {
		data["run_id"] = p.recorder.RecordRun(sessionID(appCtx), source, outcome.Output, outcome.OK, outcome.Duration)
	}
	return success(data)
}

func (p *Provider) check(params map[string]interface{}) (*types.Result, error) {
	source, ok := params["source"].(string)
	if !ok {
		return failure("source must be a string")
	}

	if err := p.evaluator.Check(source); err != nil {
		return success(map[string]interface{}{"valid": false, "error": err.Error()})
	}
	return success(map[string]interface{}{"valid": true})
}

func (p *Provider) stats() (*types.Result, error) {
	return success(p.pool.Stats())
}

func sessionID(appCtx *types.Context) *string {
	if appCtx == nil {
		return nil
	}
	return appCtx.SessionID
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
