// Package ratelimit provides the per (user, command) cooldown gate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCooldown is the minimum spacing between two accepted invocations
// of the same command by the same user.
const DefaultCooldown = time.Second

type key struct {
	userID  int64
	command string
}

// Limiter keeps one single-token bucket per (user, command) pair, refilled
// once per cooldown. Entries are never pruned; the table grows with the
// number of distinct pairs seen over the process lifetime.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[key]*rate.Limiter
	cooldown time.Duration
	now      func() time.Time
}

// New creates a limiter. A non-positive cooldown selects DefaultCooldown.
func New(cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Limiter{
		buckets:  make(map[key]*rate.Limiter),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow reports whether the invocation may proceed. A rejected call takes
// no token, so hammering a command does not extend the wait.
func (l *Limiter) Allow(userID int64, command string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{userID: userID, command: command}
	b, ok := l.buckets[k]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.cooldown), 1)
		l.buckets[k] = b
	}
	return b.AllowN(l.now(), 1)
}

// Cooldown returns the configured window.
func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}

// Len returns the number of tracked pairs.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
