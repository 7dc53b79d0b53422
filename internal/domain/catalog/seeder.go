package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/rkshawon/interprep/internal/logging"
)

// packPattern matches the pack files a catalog directory may contain
const packPattern = "**/*.{yaml,yml}"

// CheckFunc validates snippet source before it enters the catalog.
// Snippets that fail the check are dropped with a warning.
type CheckFunc func(source string) error

// Seeder loads pack files from disk into a manager at startup
type Seeder struct {
	manager *Manager
	dir     string
	check   CheckFunc
	logger  *logging.Logger
}

// NewSeeder creates a catalog seeder
func NewSeeder(manager *Manager, dir string, check CheckFunc, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Seeder{
		manager: manager,
		dir:     dir,
		check:   check,
		logger:  logger.Named("seeder"),
	}
}

// Seed walks the catalog directory and loads every pack file found.
// A missing directory is not an error; individual bad files are skipped.
func (s *Seeder) Seed(ctx context.Context) error {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		s.logger.Warn("catalog directory not found", zap.String("dir", s.dir))
		return nil
	}

	// fastwalk runs the callback from multiple workers
	var loaded, failed int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(s.dir, p)
		if relErr != nil {
			return nil
		}
		if ok, _ := doublestar.Match(packPattern, filepath.ToSlash(rel)); !ok {
			return nil
		}

		if loadErr := s.loadPack(p, d); loadErr != nil {
			s.logger.Warn("failed to load pack",
				zap.String("file", d.Name()),
				zap.Error(loadErr),
			)
			atomic.AddInt64(&failed, 1)
		} else {
			atomic.AddInt64(&loaded, 1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("catalog seeded",
		zap.String("dir", s.dir),
		zap.Int64("loaded", atomic.LoadInt64(&loaded)),
		zap.Int64("failed", atomic.LoadInt64(&failed)),
	)
	return nil
}

// loadPack parses and validates a single pack file, then caches it
func (s *Seeder) loadPack(path string, d os.DirEntry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if pack.ID == "" || pack.Title == "" {
		return fmt.Errorf("pack must have id and title")
	}
	if len(pack.Snippets) == 0 {
		return fmt.Errorf("pack %s has no snippets", pack.ID)
	}

	valid := pack.Snippets[:0]
	for _, snippet := range pack.Snippets {
		if snippet.ID == "" || snippet.Source == "" {
			s.logger.Warn("dropping snippet without id or source",
				zap.String("pack", pack.ID),
				zap.String("snippet", snippet.ID),
			)
			continue
		}
		if s.check != nil {
			if err := s.check(snippet.Source); err != nil {
				s.logger.Warn("dropping snippet that fails validation",
					zap.String("pack", pack.ID),
					zap.String("snippet", snippet.ID),
					zap.Error(err),
				)
				continue
			}
		}
		valid = append(valid, snippet)
	}
	pack.Snippets = valid

	if len(pack.Snippets) == 0 {
		return fmt.Errorf("pack %s has no valid snippets", pack.ID)
	}

	if info, err := d.Info(); err == nil {
		pack.UpdatedAt = info.ModTime()
		pack.CreatedAt = info.ModTime()
	} else {
		pack.UpdatedAt = time.Now()
		pack.CreatedAt = pack.UpdatedAt
	}

	// Files on disk are the source of truth at boot, no rewrite
	s.manager.cache(&pack)
	return nil
}

// SeedDefaults writes a starter pack when the catalog holds nothing,
// so a fresh install has something to run
func (s *Seeder) SeedDefaults(ctx context.Context) error {
	if s.manager.Stats().TotalPacks > 0 {
		return nil
	}

	starter := &Pack{
		ID:          "starter",
		Title:       "Getting Started",
		Description: "First snippets to try in the playground",
		Topic:       "basics",
		Snippets: []Snippet{
			{
				ID:     "hello",
				Title:  "Hello playground",
				Note:   "console.log output becomes the transcript.",
				Source: `console.log("Hello, playground!");`,
				Expect: "Hello, playground!",
				Tags:   []string{"console", "basics"},
			},
			{
				ID:    "counter",
				Title: "Closure counter",
				Note:  "The inner function keeps n alive between calls.",
				Source: "function counter() {\n" +
					"  let n = 0;\n" +
					"  return () => ++n;\n" +
					"}\n" +
					"const next = counter();\n" +
					"console.log(next());\n" +
					"console.log(next());",
				Expect: "1\n2",
				Tags:   []string{"closures"},
			},
			{
				ID:    "event-order",
				Title: "Timers run after microtasks",
				Note:  "Promise callbacks drain before timer callbacks fire.",
				Source: "console.log(\"first\");\n" +
					"setTimeout(() => console.log(\"third\"), 0);\n" +
					"await Promise.resolve().then(() => console.log(\"second\"));\n" +
					"await new Promise(r => setTimeout(r, 10));",
				Expect: "first\nsecond\nthird",
				Tags:   []string{"event-loop", "timers", "promises"},
			},
		},
	}

	if err := s.manager.Save(ctx, starter); err != nil {
		return fmt.Errorf("seed starter pack: %w", err)
	}
	s.logger.Info("seeded starter pack")
	return nil
}
