package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestGateOpenByDefault(t *testing.T) {
	gate := NewGate()
	if err := gate.Check(); err != nil {
		t.Fatalf("fresh gate should allow calls, got %v", err)
	}
}

func TestGateBlocksUntilReset(t *testing.T) {
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGate().WithClock(func() time.Time { return current })

	resetAt := current.Add(30 * time.Minute)
	gate.Report(resetAt)

	err := gate.Check()
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected LimitedError, got %v", err)
	}
	if !limited.ResetAt.Equal(resetAt) {
		t.Fatalf("reset time mismatch: %v", limited.ResetAt)
	}

	// 未到重置时间之前持续拒绝。
	current = current.Add(29 * time.Minute)
	if err := gate.Check(); err == nil {
		t.Fatalf("gate should still block before reset")
	}

	// 到达重置时间后惰性恢复。
	current = current.Add(time.Minute)
	if err := gate.Check(); err != nil {
		t.Fatalf("gate should reopen after reset, got %v", err)
	}
	if state := gate.Snapshot(); state.Limited {
		t.Fatalf("snapshot should report open state: %+v", state)
	}
}

func TestGateDefaultsResetToOneHour(t *testing.T) {
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGate().WithClock(func() time.Time { return current })

	gate.Report(time.Time{})

	var limited *LimitedError
	if err := gate.Check(); !errors.As(err, &limited) {
		t.Fatalf("expected LimitedError, got %v", err)
	}
	if want := current.Add(time.Hour); !limited.ResetAt.Equal(want) {
		t.Fatalf("default reset should be +1h, got %v", limited.ResetAt)
	}
}

func TestGateSnapshotLazyReset(t *testing.T) {
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGate().WithClock(func() time.Time { return current })

	gate.Report(current.Add(time.Minute))
	if state := gate.Snapshot(); !state.Limited {
		t.Fatalf("snapshot should report limited state")
	}

	current = current.Add(2 * time.Minute)
	if state := gate.Snapshot(); state.Limited {
		t.Fatalf("snapshot should lazily clear after reset, got %+v", state)
	}
}
