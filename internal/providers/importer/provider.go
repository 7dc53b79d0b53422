// Package importer exposes remote snippet import as a service tool.
package importer

import (
	"context"
	"fmt"

	imp "github.com/rkshawon/interprep/internal/importer"
	"github.com/rkshawon/interprep/internal/shared/types"
)

// Provider serves the import pipeline.
type Provider struct {
	importer *imp.Importer
}

// NewProvider creates an importer provider.
func NewProvider(importer *imp.Importer) *Provider {
	return &Provider{importer: importer}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "importer",
		Name:         "Snippet Importer",
		Description:  "Fetch remote pages and import their code blocks into the catalog",
		Category:     types.CategoryImporter,
		Capabilities: []string{"fetch"},
		Tools: []types.Tool{
			{
				ID:          "importer.fetch",
				Name:        "Fetch Snippets",
				Description: "Download a page, validate its code blocks, and add them to the catalog",
				Parameters: []types.Parameter{
					{Name: "url", Type: "string", Description: "Page or script URL (http or https)", Required: true},
				},
			},
		},
	}
}

// Execute runs an importer tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "importer.fetch":
		return p.fetch(ctx, params)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) fetch(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	rawURL, ok := params["url"].(string)
	if !ok || rawURL == "" {
		return failure("url must be a non-empty string")
	}

	report, err := p.importer.Import(ctx, rawURL)
	if err != nil {
		return failure(err.Error())
	}

	rejected := make([]map[string]interface{}, 0, len(report.Rejected))
	for _, r := range report.Rejected {
		rejected = append(rejected, map[string]interface{}{
			"title":  r.Title,
			"reason": r.Reason,
		})
	}

	return success(map[string]interface{}{
		"url":      report.URL,
		"found":    report.Found,
		"imported": report.Imported,
		"rejected": rejected,
	})
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
