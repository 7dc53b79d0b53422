package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	pool, err := NewPool(DefaultConfig(), size)
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestPoolAcquireRelease(t *testing.T) {
	pool := newTestPool(t, 2)
	ctx := context.Background()

	rt1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	rt2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	stats := pool.Stats()
	if stats["in_use"] != 2 {
		t.Errorf("Expected 2 runtimes in use, got %v", stats["in_use"])
	}

	if err := pool.Release(rt1); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := pool.Release(rt2); err != nil {
		t.Errorf("Release() error = %v", err)
	}

	stats = pool.Stats()
	if stats["available"] != 2 {
		t.Errorf("Expected 2 runtimes available, got %v", stats["available"])
	}
}

func TestPoolExecute(t *testing.T) {
	pool := newTestPool(t, 2)

	result, err := pool.Execute(context.Background(), "console.log('pooled')")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Console) != 1 || result.Console[0].Message != "pooled" {
		t.Errorf("Unexpected console output: %+v", result.Console)
	}
}

func TestPoolExecuteIsolation(t *testing.T) {
	// A single runtime forces back-to-back runs onto the same slot
	pool := newTestPool(t, 1)
	ctx := context.Background()

	if _, err := pool.Execute(ctx, "globalThis.shared = 'leak'"); err != nil {
		t.Fatalf("First execute error = %v", err)
	}

	result, err := pool.Execute(ctx, "return typeof shared")
	if err != nil {
		t.Fatalf("Second execute error = %v", err)
	}
	if result.Value != "undefined" {
		t.Errorf("Expected state to be wiped between runs, got %v", result.Value)
	}
}

func TestPoolExecuteIdempotent(t *testing.T) {
	pool := newTestPool(t, 1)
	ctx := context.Background()
	source := "console.log('a', 1); console.log({k: true})"

	first, err := pool.Execute(ctx, source)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, err := pool.Execute(ctx, source)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(first.Console) != len(second.Console) {
		t.Fatalf("Run lengths differ: %d vs %d", len(first.Console), len(second.Console))
	}
	for i := range first.Console {
		if first.Console[i].Message != second.Console[i].Message {
			t.Errorf("Entry %d differs: %q vs %q", i, first.Console[i].Message, second.Console[i].Message)
		}
	}
}

func TestPoolRecoversAfterFailure(t *testing.T) {
	pool := newTestPool(t, 1)
	ctx := context.Background()

	if _, err := pool.Execute(ctx, "throw new Error('broken')"); err == nil {
		t.Fatal("Expected failing run to error")
	}

	result, err := pool.Execute(ctx, "console.log('recovered')")
	if err != nil {
		t.Fatalf("Execute() after failure error = %v", err)
	}
	if len(result.Console) != 1 || result.Console[0].Message != "recovered" {
		t.Errorf("Unexpected console output: %+v", result.Console)
	}
}

func TestPoolConcurrentExecute(t *testing.T) {
	pool := newTestPool(t, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			source := fmt.Sprintf("console.log(%d + %d)", n, n)
			result, err := pool.Execute(ctx, source)
			if err != nil {
				errs <- err
				return
			}
			want := fmt.Sprintf("%d", n+n)
			if len(result.Console) != 1 || result.Console[0].Message != want {
				errs <- fmt.Errorf("run %d: expected %q, got %+v", n, want, result.Console)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPoolClosed(t *testing.T) {
	pool := newTestPool(t, 1)
	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := pool.Acquire(context.Background()); err != ErrPoolClosed {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}

	// Double close is a no-op
	if err := pool.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestPoolAcquireErrors(t *testing.T) {
	pool := newTestPool(t, 1)

	rt, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer pool.Release(rt)

	// Pool is drained; a cancelled context wins over the acquire wait.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() on cancelled context = %v, want context.Canceled", err)
	}

	// The acquisition sentinel is an error value; interrupted runs
	// report the timeout error kind. The two must not be conflated.
	var _ error = ErrAcquireTimeout
	var _ ErrorKind = ErrTimeout
	if ErrAcquireTimeout.Error() != "sandbox acquisition timeout" {
		t.Errorf("unexpected sentinel message %q", ErrAcquireTimeout)
	}
	if ErrTimeout != ErrorKind("timeout") {
		t.Errorf("timeout kind = %q", ErrTimeout)
	}
}

func TestPoolDefaultSize(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Close()

	if stats := pool.Stats(); stats["size"] != 4 {
		t.Errorf("Expected default size 4, got %v", stats["size"])
	}
}

func BenchmarkPoolExecute(b *testing.B) {
	pool, err := NewPool(DefaultConfig(), 4)
	if err != nil {
		b.Fatalf("Failed to create pool: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pool.Execute(ctx, "console.log(1 + 1)"); err != nil {
			b.Fatal(err)
		}
	}
}
