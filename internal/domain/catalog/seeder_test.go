package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rkshawon/interprep/internal/logging"
)

func writePackFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

const closuresYAML = `id: closures
title: Closures
topic: functions
snippets:
  - id: counter
    title: Closure counter
    source: |
      function counter() {
        let n = 0;
        return () => ++n;
      }
      const next = counter();
      console.log(next());
    expect: "1"
    tags: [closures]
  - id: capture
    title: Loop capture
    source: |
      for (let i = 0; i < 2; i++) console.log(i);
    expect: "0\n1"
`

const timersYAML = `id: timers
title: Timers
topic: async
snippets:
  - id: basic
    title: Await a timer
    source: |
      await new Promise(r => setTimeout(r, 10));
      console.log("done");
    expect: done
`

func TestSeedLoadsPacks(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "closures.yaml", closuresYAML)
	writePackFile(t, dir, "async/timers.yml", timersYAML)
	writePackFile(t, dir, "notes.txt", "not a pack")
	writePackFile(t, dir, "broken.yaml", "id: [unclosed")

	m := NewManager(dir, 0, logging.NewNop())
	s := NewSeeder(m, dir, nil, logging.NewNop())

	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	stats := m.Stats()
	if stats.TotalPacks != 2 {
		t.Errorf("Expected 2 packs, got %d", stats.TotalPacks)
	}
	if stats.TotalSnippets != 3 {
		t.Errorf("Expected 3 snippets, got %d", stats.TotalSnippets)
	}

	// Nested pack resolved through the glob
	snippet, _, err := m.GetSnippet(context.Background(), "timers/basic")
	if err != nil {
		t.Fatalf("GetSnippet failed: %v", err)
	}
	if !strings.Contains(snippet.Source, "setTimeout") {
		t.Errorf("Unexpected snippet source: %q", snippet.Source)
	}
}

func TestSeedValidatesSnippets(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "mixed.yaml", `id: mixed
title: Mixed quality
snippets:
  - id: good
    title: Fine
    source: console.log(1)
  - id: bad
    title: Broken
    source: BROKEN(
`)

	check := func(source string) error {
		if strings.Contains(source, "BROKEN") {
			return errors.New("does not parse")
		}
		return nil
	}

	m := NewManager(dir, 0, logging.NewNop())
	s := NewSeeder(m, dir, check, logging.NewNop())
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	pack, err := m.Load(context.Background(), "mixed")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(pack.Snippets) != 1 || pack.Snippets[0].ID != "good" {
		t.Errorf("Expected only the valid snippet, got %+v", pack.Snippets)
	}
}

func TestSeedRejectsEmptyPacks(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "hollow.yaml", `id: hollow
title: Nothing valid
snippets:
  - id: bad
    title: Broken
    source: BROKEN(
`)

	check := func(source string) error {
		if strings.Contains(source, "BROKEN") {
			return errors.New("does not parse")
		}
		return nil
	}

	m := NewManager(dir, 0, logging.NewNop())
	s := NewSeeder(m, dir, check, logging.NewNop())
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if m.Stats().TotalPacks != 0 {
		t.Error("Pack with no valid snippets should not be loaded")
	}
}

func TestSeedMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	m := NewManager(dir, 0, logging.NewNop())
	s := NewSeeder(m, dir, nil, logging.NewNop())

	if err := s.Seed(context.Background()); err != nil {
		t.Errorf("Seed of missing directory should be a no-op, got %v", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 0, logging.NewNop())
	s := NewSeeder(m, dir, nil, logging.NewNop())
	ctx := context.Background()

	if err := s.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if !m.Exists("starter") {
		t.Fatal("Expected starter pack")
	}
	if _, err := os.Stat(filepath.Join(dir, "starter.yaml")); err != nil {
		t.Errorf("Expected starter pack on disk: %v", err)
	}

	// Second call leaves the catalog alone
	if err := s.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if got := m.Stats().TotalPacks; got != 1 {
		t.Errorf("Expected 1 pack after repeat seeding, got %d", got)
	}
}

func TestSeedDefaultsSkipsPopulatedCatalog(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "closures.yaml", closuresYAML)

	m := NewManager(dir, 0, logging.NewNop())
	s := NewSeeder(m, dir, nil, logging.NewNop())
	ctx := context.Background()

	if err := s.Seed(ctx); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := s.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}

	if m.Exists("starter") {
		t.Error("Starter pack should not be seeded into a populated catalog")
	}
}
