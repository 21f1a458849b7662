package worksteal

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestGlobalPool_Lifecycle verifies the global pool helper
// Given: No global pool
// When: It is initialised, used, initialised again and shut down
// Then: Tasks run, the second init is a no-op and shutdown forgets the pool
func TestGlobalPool_Lifecycle(t *testing.T) {
	// Arrange
	if err := InitGlobalPool(2, WithID("global-test")); err != nil {
		t.Fatalf("InitGlobalPool failed: %v", err)
	}
	first := GetGlobalPool()

	// Act
	if err := InitGlobalPool(8); err != nil {
		t.Fatalf("second InitGlobalPool failed: %v", err)
	}
	v, err := Go(context.Background(), func(ctx context.Context) (int, error) { return 1 + 2, nil }).Get()

	// Assert
	if GetGlobalPool() != first {
		t.Error("second InitGlobalPool replaced the pool")
	}
	if first.WorkerCount() != 2 || first.ID() != "global-test" {
		t.Errorf("global pool: workers=%d id=%q, want 2 global-test", first.WorkerCount(), first.ID())
	}
	if v != 3 || err != nil {
		t.Errorf("Go() = (%d, %v), want (3, nil)", v, err)
	}

	if err := ShutdownGlobalPool(); err != nil {
		t.Fatalf("ShutdownGlobalPool failed: %v", err)
	}
	if first.IsRunning() {
		t.Error("global pool still running after ShutdownGlobalPool")
	}
	if err := ShutdownGlobalPool(); err != nil {
		t.Errorf("second ShutdownGlobalPool = %v, want nil", err)
	}
}

func TestGetGlobalPool_PanicsWhenUninitialised(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("GetGlobalPool did not panic without InitGlobalPool")
		}
	}()
	GetGlobalPool()
}

func TestInitGlobalPool_InvalidConfig(t *testing.T) {
	err := InitGlobalPool(-1)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("InitGlobalPool(-1) = %v, want ErrInvalidConfig", err)
	}
}

// TestReexports verifies the root package exposes the core API
func TestReexports(t *testing.T) {
	pool, err := NewPool(WithWorkers(2), WithRouting(RoutingRandom), WithIdleBackoff(time.Millisecond))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Stop()

	fut := SubmitNamed(context.Background(), pool, "reexport", func(ctx context.Context) (string, error) {
		if _, ok := CurrentWorkerID(ctx); !ok {
			return "", errors.New("missing worker id")
		}
		return "ok", nil
	})
	if v, err := fut.Get(); v != "ok" || err != nil {
		t.Errorf("SubmitNamed = (%q, %v), want (ok, nil)", v, err)
	}
	if pool.Routing() != RoutingRandom {
		t.Errorf("Routing() = %v, want random", pool.Routing())
	}
}
