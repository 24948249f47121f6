package ingest

import (
	"sync"
	"time"
)

// DefaultMoveWindow is the minimum spacing between "moved" fan-outs for one user.
const DefaultMoveWindow = 5 * time.Minute

// Throttle remembers when each user last triggered a moved fan-out.
type Throttle struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle returns a throttle with the given window, or DefaultMoveWindow when it is not positive.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = DefaultMoveWindow
	}
	return &Throttle{window: window, last: make(map[string]time.Time)}
}

// Allow reports whether userID may notify at now and, if so, records now as the
// last notification time. Check and update happen under one lock.
func (t *Throttle) Allow(userID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[userID]; ok && now.Sub(last) < t.window {
		return false
	}
	t.last[userID] = now
	return true
}

// Forget drops the record for userID.
func (t *Throttle) Forget(userID string) {
	t.mu.Lock()
	delete(t.last, userID)
	t.mu.Unlock()
}
