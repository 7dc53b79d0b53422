package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/rkshawon/interprep/internal/logging"
)

// DefaultCacheLimit bounds how many packs stay cached in memory
const DefaultCacheLimit = 1000

var (
	ErrPackNotFound    = errors.New("pack not found")
	ErrSnippetNotFound = errors.New("snippet not found")
)

// Manager handles catalog pack persistence. Packs live as YAML files
// under one directory and are cached in memory, with eviction once the
// cache outgrows its limit.
type Manager struct {
	packs     sync.Map
	cacheSize int64 // Atomic counter for cache size
	dir       string
	limit     int64
	evicting  int32 // Atomic flag to prevent concurrent evictions
	logger    *logging.Logger
}

// NewManager creates a catalog manager rooted at dir
func NewManager(dir string, cacheLimit int, logger *logging.Logger) *Manager {
	if cacheLimit <= 0 {
		cacheLimit = DefaultCacheLimit
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		dir:    dir,
		limit:  int64(cacheLimit),
		logger: logger.Named("catalog"),
	}
}

// Save persists a pack to disk and caches it
func (m *Manager) Save(ctx context.Context, pack *Pack) error {
	if pack.ID == "" {
		return fmt.Errorf("pack ID is required")
	}

	pack.UpdatedAt = time.Now()
	if pack.CreatedAt.IsZero() {
		pack.CreatedAt = time.Now()
	}

	data, err := yaml.Marshal(pack)
	if err != nil {
		return fmt.Errorf("failed to marshal pack: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := os.WriteFile(m.packPath(pack.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write pack: %w", err)
	}

	m.cache(pack)
	return nil
}

// Load retrieves a pack, reading it from disk on a cache miss
func (m *Manager) Load(ctx context.Context, id string) (*Pack, error) {
	if cached, ok := m.packs.Load(id); ok {
		return cached.(*Pack), nil
	}

	data, err := os.ReadFile(m.packPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pack %s: %w", id, ErrPackNotFound)
		}
		return nil, fmt.Errorf("failed to read pack %s: %w", id, err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pack %s: %w", id, err)
	}
	if pack.ID == "" {
		return nil, fmt.Errorf("pack %s has empty ID field", id)
	}

	if info, statErr := os.Stat(m.packPath(id)); statErr == nil {
		pack.UpdatedAt = info.ModTime()
	}

	m.cache(&pack)
	return &pack, nil
}

// List returns all cached packs, optionally filtered by topic, in
// stable ID order
func (m *Manager) List(topic *string) []*Pack {
	var packs []*Pack
	m.packs.Range(func(_, value interface{}) bool {
		pack := value.(*Pack)
		if topic == nil || pack.Topic == *topic {
			packs = append(packs, pack)
		}
		return true
	})

	sort.Slice(packs, func(i, j int) bool {
		return packs[i].ID < packs[j].ID
	})
	return packs
}

// ListMetadata lists metadata for all packs
func (m *Manager) ListMetadata(topic *string) []PackMetadata {
	packs := m.List(topic)
	metadata := make([]PackMetadata, len(packs))
	for i, pack := range packs {
		metadata[i] = pack.ToMetadata()
	}
	return metadata
}

// GetSnippet resolves a qualified snippet ID of the form
// "<pack>/<snippet>"
func (m *Manager) GetSnippet(ctx context.Context, qualified string) (*Snippet, *Pack, error) {
	packID, snippetID, ok := strings.Cut(qualified, "/")
	if !ok || packID == "" || snippetID == "" {
		return nil, nil, fmt.Errorf("snippet ID must be <pack>/<snippet>: %q", qualified)
	}

	pack, err := m.Load(ctx, packID)
	if err != nil {
		return nil, nil, err
	}

	for i := range pack.Snippets {
		if pack.Snippets[i].ID == snippetID {
			return &pack.Snippets[i], pack, nil
		}
	}
	return nil, nil, fmt.Errorf("snippet %s in pack %s: %w", snippetID, packID, ErrSnippetNotFound)
}

// Search scores cached snippets against a free-text query
func (m *Manager) Search(query string, limit int) []Match {
	if limit <= 0 {
		limit = 10
	}
	queryLower := strings.ToLower(query)
	words := strings.Fields(queryLower)

	var results []Match
	m.packs.Range(func(_, value interface{}) bool {
		pack := value.(*Pack)
		for _, snippet := range pack.Snippets {
			score := snippetRelevance(words, pack, &snippet)
			if score > 0 {
				results = append(results, Match{
					PackID:  pack.ID,
					Snippet: snippet,
					Score:   score,
				})
			}
		}
		return true
	})

	// Sort by score descending, snippet ID for stable ties
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Snippet.ID < results[j].Snippet.ID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Delete removes a pack from disk and cache
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := os.Remove(m.packPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete pack: %w", err)
	}

	if _, existed := m.packs.Load(id); existed {
		m.packs.Delete(id)
		atomic.AddInt64(&m.cacheSize, -1)
	}
	return nil
}

// Exists checks if a pack exists in cache or on disk
func (m *Manager) Exists(id string) bool {
	if _, ok := m.packs.Load(id); ok {
		return true
	}
	_, err := os.Stat(m.packPath(id))
	return err == nil
}

// Stats returns catalog statistics over the cached packs
func (m *Manager) Stats() Stats {
	stats := Stats{Topics: make(map[string]int)}
	var lastUpdated *time.Time

	m.packs.Range(func(_, value interface{}) bool {
		pack := value.(*Pack)
		stats.TotalPacks++
		stats.TotalSnippets += len(pack.Snippets)
		if pack.Topic != "" {
			stats.Topics[pack.Topic]++
		}
		if lastUpdated == nil || pack.UpdatedAt.After(*lastUpdated) {
			t := pack.UpdatedAt
			lastUpdated = &t
		}
		return true
	})

	stats.LastUpdated = lastUpdated
	return stats
}

// cache stores a pack in memory with size limit enforcement
func (m *Manager) cache(pack *Pack) {
	_, existed := m.packs.Load(pack.ID)
	m.packs.Store(pack.ID, pack)

	if !existed {
		newSize := atomic.AddInt64(&m.cacheSize, 1)
		if newSize > m.evictionThreshold() {
			m.evictEntries()
		}
	}
}

func (m *Manager) evictionThreshold() int64 {
	return m.limit * 9 / 10
}

// evictEntries removes entries when the cache grows too large.
// A CAS flag keeps eviction single-threaded.
func (m *Manager) evictEntries() {
	if !atomic.CompareAndSwapInt32(&m.evicting, 0, 1) {
		return // Another goroutine is already evicting
	}
	defer atomic.StoreInt32(&m.evicting, 0)

	// Double-check size after winning the flag
	currentSize := atomic.LoadInt64(&m.cacheSize)
	threshold := m.evictionThreshold()
	if currentSize <= threshold {
		return
	}

	headroom := m.limit / 10
	if headroom < 1 {
		headroom = 1
	}
	targetEvictions := currentSize - threshold + headroom
	evicted := int64(0)

	// sync.Map iteration order is unspecified, so eviction is
	// pseudo-random; packs reload from disk on next access
	m.packs.Range(func(key, _ interface{}) bool {
		if evicted >= targetEvictions {
			return false
		}
		m.packs.Delete(key)
		evicted++
		return true
	})

	atomic.AddInt64(&m.cacheSize, -evicted)
	m.logger.Debug("evicted catalog cache entries", zap.Int64("evicted", evicted))
}

// packPath generates the filesystem path for a pack
func (m *Manager) packPath(id string) string {
	return filepath.Join(m.dir, id+".yaml")
}

// snippetRelevance scores one snippet against the query words
func snippetRelevance(words []string, pack *Pack, snippet *Snippet) float64 {
	score := 0.0
	title := strings.ToLower(snippet.Title)
	note := strings.ToLower(snippet.Note)
	source := strings.ToLower(snippet.Source)
	packTitle := strings.ToLower(pack.Title)
	topic := strings.ToLower(pack.Topic)

	for _, word := range words {
		if strings.Contains(title, word) {
			score += 10.0
		}
		if strings.Contains(note, word) {
			score += 5.0
		}
		for _, tag := range snippet.Tags {
			if strings.Contains(strings.ToLower(tag), word) {
				score += 3.0
			}
		}
		if strings.Contains(source, word) {
			score += 2.0
		}
		if strings.Contains(packTitle, word) || strings.Contains(topic, word) {
			score += 1.0
		}
	}
	return score
}
