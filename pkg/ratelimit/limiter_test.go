package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(now *time.Time) *Limiter {
	l := New(0)
	l.now = func() time.Time { return *now }
	return l
}

func TestAllowFirstInvocation(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)
	if !l.Allow(1, "ping") {
		t.Fatal("Allow(first) = false, want true")
	}
}

func TestRejectWithinCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	l.Allow(1, "ping")
	now = now.Add(999 * time.Millisecond)
	if l.Allow(1, "ping") {
		t.Fatal("Allow(within cooldown) = true, want false")
	}
}

func TestRejectionDoesNotExtendWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	l.Allow(1, "ping")
	now = now.Add(600 * time.Millisecond)
	l.Allow(1, "ping")
	now = now.Add(400 * time.Millisecond)
	if !l.Allow(1, "ping") {
		t.Fatal("Allow(after original window) = false, want true")
	}
}

func TestPairsAreIndependent(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	l.Allow(1, "ping")
	if !l.Allow(1, "help") {
		t.Error("different command should not be limited")
	}
	if !l.Allow(2, "ping") {
		t.Error("different user should not be limited")
	}
	if got := l.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestCustomCooldown(t *testing.T) {
	l := New(5 * time.Second)
	if l.Cooldown() != 5*time.Second {
		t.Fatalf("Cooldown() = %s, want 5s", l.Cooldown())
	}
	if New(-1).Cooldown() != DefaultCooldown {
		t.Fatal("negative cooldown should fall back to default")
	}
}

func TestCooldownSequence(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	l := newTestLimiter(&now)

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{300 * time.Millisecond, false},
		{999 * time.Millisecond, false},
		{time.Second, true},
		{1500 * time.Millisecond, false},
		{2 * time.Second, true},
		{2001 * time.Millisecond, false},
		{5 * time.Second, true},
	}
	for _, s := range steps {
		now = start.Add(s.at)
		if got := l.Allow(7, "ai"); got != s.want {
			t.Fatalf("Allow at %s = %v, want %v", s.at, got, s.want)
		}
	}
}
