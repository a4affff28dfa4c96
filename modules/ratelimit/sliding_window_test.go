package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

// memoryCounter is a test-only CounterStore; TTLs are ignored.
type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}}
}

func (m *memoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryCounter) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func TestSlidingWindowEnforcesLimit(t *testing.T) {
	ctx := context.Background()
	window := time.Minute
	clk := &fakeClock{now: time.Unix(600, 0)} // aligned to a window boundary
	limiter := SlidingWindowFactory(clk, newMemoryCounter(), "test")(2, window)

	for i := range 2 {
		res, err := limiter.Allow(ctx, "client-a")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	res, err := limiter.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Error("third request within the window should be rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", res.RetryAfter)
	}
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(600, 0)}
	limiter := SlidingWindowFactory(clk, newMemoryCounter(), "test")(1, time.Minute)

	if res, _ := limiter.Allow(ctx, "client-a"); !res.Allowed {
		t.Fatal("first request for client-a should pass")
	}
	if res, _ := limiter.Allow(ctx, "client-b"); !res.Allowed {
		t.Error("client-b must not share client-a's budget")
	}
	if res, _ := limiter.Allow(ctx, "client-a"); res.Allowed {
		t.Error("client-a exhausted its budget")
	}
}

func TestSlidingWindowInterpolatesPreviousWindow(t *testing.T) {
	ctx := context.Background()
	window := time.Minute
	clk := &fakeClock{now: time.Unix(600, 0)}
	limiter := SlidingWindowFactory(clk, newMemoryCounter(), "test")(2, window)

	// fill the first window
	limiter.Allow(ctx, "client-a")
	limiter.Allow(ctx, "client-a")

	// at the very start of the next window the previous one still counts in full
	clk.now = clk.now.Add(window)
	res, err := limiter.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Error("previous window weight should still block at the boundary")
	}

	// a full idle window later the budget is fresh again
	clk.now = clk.now.Add(2 * window)
	res, err = limiter.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !res.Allowed {
		t.Error("budget should recover after an idle window")
	}
}
