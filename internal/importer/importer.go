package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/logging"
	"github.com/rkshawon/interprep/internal/shared/utils"
	"github.com/rkshawon/interprep/internal/snippet"
)

// ImportPackID is the catalog pack that receives fetched snippets.
const ImportPackID = "pack_imported"

// Rejection explains why a candidate was not imported.
type Rejection struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Report summarizes one import.
type Report struct {
	URL      string      `json:"url"`
	Found    int         `json:"found"`
	Imported []string    `json:"imported"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// Importer fetches pages, validates their code blocks, and registers
// the valid ones in the catalog.
type Importer struct {
	client      *Client
	evaluator   *snippet.Evaluator
	catalog     *catalog.Manager
	fingerprint *utils.Fingerprinter
	logger      *logging.Logger

	mu sync.Mutex // serializes writes to the import pack
}

// New creates an importer writing into the given catalog.
func New(client *Client, evaluator *snippet.Evaluator, manager *catalog.Manager, logger *logging.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		client:      client,
		evaluator:   evaluator,
		catalog:     manager,
		fingerprint: utils.NewFingerprinter(),
		logger:      logger.Named("importer"),
	}
}

// Import fetches one URL and registers every candidate that passes a
// syntax check. Candidates that fail the check land in the report's
// rejected list rather than aborting the import.
func (i *Importer) Import(ctx context.Context, rawURL string) (*Report, error) {
	page, err := i.client.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	candidates, err := Extract(page)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no code blocks found at %s", rawURL)
	}

	report := &Report{URL: rawURL, Found: len(candidates), Imported: []string{}}

	var accepted []catalog.Snippet
	for _, cand := range candidates {
		if err := i.evaluator.Check(cand.Source); err != nil {
			report.Rejected = append(report.Rejected, Rejection{Title: cand.Title, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, catalog.Snippet{
			Title:  cand.Title,
			Source: cand.Source,
			Tags:   []string{"imported"},
		})
	}

	if len(accepted) > 0 {
		ids, err := i.register(ctx, accepted)
		if err != nil {
			return nil, err
		}
		report.Imported = ids
	}

	i.logger.Info("import complete",
		zap.String("url", rawURL),
		zap.Int("found", report.Found),
		zap.Int("imported", len(report.Imported)),
		zap.Int("rejected", len(report.Rejected)))
	return report, nil
}

// register appends snippets to the import pack, creating it on first
// use. Sources already present in the pack are skipped, so importing
// the same page twice does not duplicate its snippets.
func (i *Importer) register(ctx context.Context, snippets []catalog.Snippet) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	pack, err := i.catalog.Load(ctx, ImportPackID)
	if errors.Is(err, catalog.ErrPackNotFound) {
		pack = &catalog.Pack{
			ID:    ImportPackID,
			Title: "Imported Snippets",
			Topic: "imported",
		}
	} else if err != nil {
		return nil, fmt.Errorf("load import pack: %w", err)
	}

	taken := make(map[string]bool, len(pack.Snippets))
	known := make(map[string]string, len(pack.Snippets))
	for _, s := range pack.Snippets {
		taken[s.ID] = true
		known[i.fingerprint.Fingerprint(s.Source)] = s.ID
	}

	ids := make([]string, 0, len(snippets))
	dirty := false
	for _, s := range snippets {
		print := i.fingerprint.Fingerprint(s.Source)
		if existing, ok := known[print]; ok {
			ids = append(ids, ImportPackID+"/"+existing)
			continue
		}
		s.ID = uniqueID(slugify(s.Title), taken)
		taken[s.ID] = true
		known[print] = s.ID
		pack.Snippets = append(pack.Snippets, s)
		ids = append(ids, ImportPackID+"/"+s.ID)
		dirty = true
	}

	if dirty {
		if err := i.catalog.Save(ctx, pack); err != nil {
			return nil, fmt.Errorf("save import pack: %w", err)
		}
	}
	return ids, nil
}

// slugify turns a title into a snippet ID.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= 40 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "snippet"
	}
	return slug
}

func uniqueID(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}
