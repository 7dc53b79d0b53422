package playground

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/snippet"
)

func TestPlaygroundDefinition(t *testing.T) {
	p, _ := newTestProvider(t)

	def := p.Definition()
	if def.ID != "playground" {
		t.Errorf("ID = %s, want playground", def.ID)
	}
	if def.Category != types.CategoryPlayground {
		t.Errorf("Category = %s, want playground", def.Category)
	}
	if len(def.Tools) != 3 {
		t.Fatalf("tools = %d, want 3", len(def.Tools))
	}
	for i, want := range []string{"playground.run", "playground.check", "playground.stats"} {
		if def.Tools[i].ID != want {
			t.Errorf("tool[%d] = %s, want %s", i, def.Tools[i].ID, want)
		}
	}
}

func TestPlaygroundRun(t *testing.T) {
	p, rec := newTestProvider(t)
	ctx := context.Background()

	session := "sess_test"
	result, err := p.Execute(ctx, "playground.run", map[string]interface{}{
		"source": "console.log(6 * 7)",
	}, &types.Context{SessionID: &session})

	if err != nil || !result.Success {
		t.Fatalf("run failed: %v, result %+v", err, result)
	}
	if result.Data["output"].(string) != "42" {
		t.Errorf("output = %q, want 42", result.Data["output"])
	}
	if !result.Data["ok"].(bool) {
		t.Error("ok = false, want true")
	}
	if result.Data["lines"].(int) != 1 {
		t.Errorf("lines = %v, want 1", result.Data["lines"])
	}
	if result.Data["duration_ms"].(float64) < 0 {
		t.Errorf("duration_ms = %v, want >= 0", result.Data["duration_ms"])
	}

	runs := rec.captured()
	if len(runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs))
	}
	if runs[0].sessionID == nil || *runs[0].sessionID != "sess_test" {
		t.Errorf("recorded session = %v, want sess_test", runs[0].sessionID)
	}
	if runs[0].output != "42" || !runs[0].ok {
		t.Errorf("recorded run = %+v", runs[0])
	}
}

func TestPlaygroundRunFailure(t *testing.T) {
	p, rec := newTestProvider(t)

	result, err := p.Execute(context.Background(), "playground.run", map[string]interface{}{
		"source": "throw new Error('boom')",
	}, nil)

	// The tool call succeeds even when the snippet fails; the failure
	// lives in the transcript.
	if err != nil || !result.Success {
		t.Fatalf("run failed: %v", err)
	}
	if result.Data["output"].(string) != "Error: boom" {
		t.Errorf("output = %q, want Error: boom", result.Data["output"])
	}
	if result.Data["ok"].(bool) {
		t.Error("ok = true, want false")
	}

	runs := rec.captured()
	if len(runs) != 1 || runs[0].ok {
		t.Errorf("recorded runs = %+v, want one failed run", runs)
	}
	if runs[0].sessionID != nil {
		t.Errorf("recorded session = %v, want nil", runs[0].sessionID)
	}
}

func TestPlaygroundRunMissingSource(t *testing.T) {
	p, rec := newTestProvider(t)

	result, err := p.Execute(context.Background(), "playground.run", map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Error("run without source succeeded")
	}
	if result.Error == nil || *result.Error != "source must be a string" {
		t.Errorf("error = %v", result.Error)
	}
	if len(rec.captured()) != 0 {
		t.Error("rejected run was recorded")
	}
}

func TestPlaygroundRunNilRecorder(t *testing.T) {
	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()
	p := NewProvider(snippet.New(pool, nil), pool, nil)

	result, err := p.Execute(context.Background(), "playground.run", map[string]interface{}{
		"source": "console.log('ok')",
	}, nil)
	if err != nil || !result.Success {
		t.Fatalf("run failed: %v", err)
	}
	if result.Data["output"].(string) != "ok" {
		t.Errorf("output = %q, want ok", result.Data["output"])
	}
}

func TestPlaygroundCheck(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	result, err := p.Execute(ctx, "playground.check", map[string]interface{}{
		"source": "const x = 1; console.log(x)",
	}, nil)
	if err != nil || !result.Success {
		t.Fatalf("check failed: %v", err)
	}
	if !result.Data["valid"].(bool) {
		t.Error("valid = false for well-formed source")
	}

	result, err = p.Execute(ctx, "playground.check", map[string]interface{}{
		"source": "const const = 1",
	}, nil)
	if err != nil || !result.Success {
		t.Fatalf("check failed: %v", err)
	}
	if result.Data["valid"].(bool) {
		t.Error("valid = true for malformed source")
	}
	msg := result.Data["error"].(string)
	if msg == "" || strings.Contains(msg, "\n") {
		t.Errorf("error = %q, want single non-empty line", msg)
	}
}

func TestPlaygroundStats(t *testing.T) {
	p, _ := newTestProvider(t)

	result, err := p.Execute(context.Background(), "playground.stats", map[string]interface{}{}, nil)
	if err != nil || !result.Success {
		t.Fatalf("stats failed: %v", err)
	}
	if result.Data["size"].(int) != 2 {
		t.Errorf("size = %v, want 2", result.Data["size"])
	}
	if result.Data["closed"].(bool) {
		t.Error("closed = true for live pool")
	}
}

func TestPlaygroundUnknownTool(t *testing.T) {
	p, _ := newTestProvider(t)

	result, err := p.Execute(context.Background(), "playground.nope", map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Error("unknown tool succeeded")
	}
}

type recordedRun struct {
	sessionID *string
	source    string
	output    string
	ok        bool
	duration  time.Duration
}

type captureRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (c *captureRecorder) RecordRun(sessionID *string, source, output string, ok bool, duration time.Duration) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, recordedRun{sessionID, source, output, ok, duration})
	return fmt.Sprintf("run_%04d", len(c.runs))
}

func (c *captureRecorder) captured() []recordedRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedRun(nil), c.runs...)
}

func newTestProvider(t *testing.T) (*Provider, *captureRecorder) {
	t.Helper()
	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	rec := &captureRecorder{}
	return NewProvider(snippet.New(pool, nil), pool, rec), rec
}
