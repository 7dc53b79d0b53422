package server

import (
	"context"
	"testing"
	"time"

	"github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/logging"
	"github.com/rkshawon/interprep/internal/sandbox"
)

// Close must release the sqlite handle after the manager drains its
// flush queue; the manager itself does not own the store.
func TestCloseReleasesHistoryStore(t *testing.T) {
	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 1)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	manager := history.NewManager(store, 100, logging.NewNop())
	manager.RecordRun(nil, `console.log(1)`, "1", true, time.Millisecond)

	srv := &Server{
		pool:    pool,
		history: manager,
		store:   store,
		logger:  logging.NewNop(),
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := store.Count(context.Background()); err == nil {
		t.Error("store still open after Close, want closed database error")
	}
}
