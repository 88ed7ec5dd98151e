package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/packcache/config"
	"github.com/jonwraymond/packcache/engine"
	"github.com/jonwraymond/packcache/idle"
)

func testConfig(t *testing.T, mode string) config.Config {
	t.Helper()
	return config.Config{
		CacheDirectory: t.TempDir(),
		Store:          mode,
		Version:        "v1",
	}
}

// fakeClock lets tests fire the idle timer by hand.
type fakeClock struct {
	mu sync.Mutex
	fn func()
}

func (c *fakeClock) Now() time.Time {
	return time.Now()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) idle.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = f
	return stoppedTimer{}
}

func (c *fakeClock) fire() {
	c.mu.Lock()
	f := c.fn
	c.fn = nil
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return true }

// TestEngine_PackLifecycle tests the full archive round trip: store, shut
// down, then a second engine serves the entry from disk.
func TestEngine_PackLifecycle(t *testing.T) {
	cfg := testConfig(t, "pack")
	ctx := context.Background()

	first, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := first.Store(ctx, "a", "etag1", []byte(`{"compiled":true}`)); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	if err := first.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	second, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("New() (restart) = %v", err)
	}
	defer second.Shutdown(ctx)

	hit, err := second.Lookup(ctx, "a", "etag1")
	if err != nil {
		t.Fatalf("Lookup() = %v", err)
	}
	if !hit.Hit || string(hit.Data) != `{"compiled":true}` {
		t.Errorf("Lookup(a, etag1) = hit=%v data=%q, want hit", hit.Hit, hit.Data)
	}

	miss, err := second.Lookup(ctx, "a", "etag2")
	if err != nil {
		t.Fatalf("Lookup() = %v", err)
	}
	if miss.Hit {
		t.Error("Lookup(a, etag2) = hit, want miss for changed input")
	}
	if miss.Provide == nil {
		t.Error("miss Result has no Provide follow-up")
	}
}

// TestEngine_InstantRoundTrip tests synchronous store and lookup without any
// idle or shutdown involvement.
func TestEngine_InstantRoundTrip(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.New(testConfig(t, "instant"))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer eng.Shutdown(ctx)

	if err := eng.Store(ctx, "mod", "e1", []byte("payload")); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	result, err := eng.Lookup(ctx, "mod", "e1")
	if err != nil || !result.Hit || string(result.Data) != "payload" {
		t.Fatalf("Lookup() = hit=%v data=%q, %v", result.Hit, result.Data, err)
	}
}

// TestEngine_ProvideAfterMiss tests the miss follow-up path.
func TestEngine_ProvideAfterMiss(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.New(testConfig(t, "instant"))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer eng.Shutdown(ctx)

	miss, err := eng.Lookup(ctx, "mod", "e1")
	if err != nil || miss.Hit {
		t.Fatalf("Lookup() = hit=%v, %v, want miss", miss.Hit, err)
	}
	if err := miss.Provide(ctx, []byte("fresh")); err != nil {
		t.Fatalf("Provide() = %v", err)
	}
	hit, err := eng.Lookup(ctx, "mod", "e1")
	if err != nil || !hit.Hit || string(hit.Data) != "fresh" {
		t.Fatalf("Lookup() after Provide = hit=%v data=%q, %v", hit.Hit, hit.Data, err)
	}
}

// TestEngine_IdleDrain tests that an idle period writes deferred entries.
func TestEngine_IdleDrain(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{}

	eng, err := engine.New(testConfig(t, "idle"), engine.WithClock(clock))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer eng.Shutdown(ctx)

	if err := eng.Store(ctx, "mod", "e1", []byte("deferred")); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	if r, _ := eng.Lookup(ctx, "mod", "e1"); r.Hit {
		t.Fatal("Lookup() hit before the idle drain")
	}

	eng.BeginIdle()
	clock.fire()

	deadline := time.Now().Add(2 * time.Second)
	for {
		result, err := eng.Lookup(ctx, "mod", "e1")
		if err != nil {
			t.Fatalf("Lookup() = %v", err)
		}
		if result.Hit {
			if string(result.Data) != "deferred" {
				t.Fatalf("drained value = %q, want %q", result.Data, "deferred")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("entry never drained to disk")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestEngine_ShutdownFlushesPending tests that pending idle-mode work hits
// disk during shutdown even without an idle period.
func TestEngine_ShutdownFlushesPending(t *testing.T) {
	cfg := testConfig(t, "idle")
	ctx := context.Background()

	first, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := first.Store(ctx, "mod", "e1", []byte("pending")); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	if err := first.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	second, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("New() (restart) = %v", err)
	}
	defer second.Shutdown(ctx)

	result, err := second.Lookup(ctx, "mod", "e1")
	if err != nil || !result.Hit || string(result.Data) != "pending" {
		t.Fatalf("Lookup() after restart = hit=%v data=%q, %v", result.Hit, result.Data, err)
	}
}

// TestEngine_InvalidConfig tests constructor validation.
func TestEngine_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "lazy")
	if _, err := engine.New(cfg); !errors.Is(err, config.ErrInvalidStoreMode) {
		t.Errorf("New() = %v, want ErrInvalidStoreMode", err)
	}

	bad := testConfig(t, "pack")
	bad.LogLevel = "trace"
	if _, err := engine.New(bad); !errors.Is(err, config.ErrInvalidLogLevel) {
		t.Errorf("New() = %v, want ErrInvalidLogLevel", err)
	}
}
