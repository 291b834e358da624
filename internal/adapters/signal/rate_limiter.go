package signal

import (
	"sync"
	"time"

	"github.com/mkamel/airwave/internal/domain"
)

// ChatRateLimiter caps how many chat messages one identity may send
// within a sliding window.
type ChatRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
}

func NewChatRateLimiter(limit int, interval time.Duration) *ChatRateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ChatRateLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *ChatRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[uid]

	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[uid] = fresh

	return true
}
