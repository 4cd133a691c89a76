package notify

import (
	"sync"
	"time"

	"contact-gateway/model"

	"github.com/google/uuid"
)

// Center holds the per-client queues of timed status messages. Notifications
// auto-dismiss after a fixed display duration, each on its own schedule;
// dismissing one never affects the others. Repeated identical messages are
// not deduplicated.
//
// Expiry is evaluated against the injected clock on read, so no timer
// goroutine per notification is needed and tests can advance virtual time.
type Center struct {
	mu      sync.Mutex
	queues  map[string][]model.Notification
	display time.Duration
	now     func() time.Time
}

func NewCenter(displayDuration time.Duration) *Center {
	return NewCenterWithClock(displayDuration, time.Now)
}

// NewCenterWithClock is NewCenter with an explicit clock, for tests.
func NewCenterWithClock(displayDuration time.Duration, now func() time.Time) *Center {
	return &Center{
		queues:  make(map[string][]model.Notification),
		display: displayDuration,
		now:     now,
	}
}

// Push appends a notification to clientID's queue and returns its id.
func (c *Center) Push(clientID string, kind model.NotificationKind, message string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := model.Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.display),
	}
	c.queues[clientID] = append(c.queues[clientID], n)
	return n.ID
}

// Dismiss removes one notification early. Reports whether it was present.
func (c *Center) Dismiss(clientID, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.queues[clientID]
	for i, n := range queue {
		if n.ID == id {
			c.queues[clientID] = append(queue[:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns clientID's notifications that have not yet auto-dismissed,
// in insertion order. Expired entries are dropped as a side effect.
func (c *Center) Active(clientID string) []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	queue := c.queues[clientID]

	active := queue[:0]
	for _, n := range queue {
		if now.Before(n.ExpiresAt) {
			active = append(active, n)
		}
	}

	if len(active) == 0 {
		delete(c.queues, clientID)
		return nil
	}
	c.queues[clientID] = active

	out := make([]model.Notification, len(active))
	copy(out, active)
	return out
}

// Sweep drops expired notifications across all clients.
func (c *Center) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for clientID, queue := range c.queues {
		active := queue[:0]
		for _, n := range queue {
			if now.Before(n.ExpiresAt) {
				active = append(active, n)
			}
		}
		if len(active) == 0 {
			delete(c.queues, clientID)
			continue
		}
		c.queues[clientID] = active
	}
}

// StartSweeping runs Sweep every interval until stop is closed.
func (c *Center) StartSweeping(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
