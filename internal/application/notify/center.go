// Package notify holds the alerts raised while an admin works a list view.
// A Center belongs to exactly one view and lives as long as that view is mounted.
package notify

import (
	"sync"

	"linkdash/internal/domain/selection"
)

// DefaultCapacity bounds how many undrained alerts a Center keeps.
const DefaultCapacity = 50

// Center buffers alerts until the client drains them.
// When full, the oldest alert is dropped.
type Center struct {
	mu       sync.Mutex
	messages []selection.Message
	capacity int
}

// Compile-time check that *Center satisfies selection.Notifier.
var _ selection.Notifier = (*Center)(nil)

// NewCenter creates an empty Center. A non-positive capacity uses DefaultCapacity.
func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{capacity: capacity}
}

// Notify records msg. It never blocks on the reader.
func (c *Center) Notify(msg selection.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == c.capacity {
		c.messages = c.messages[1:]
	}
	c.messages = append(c.messages, msg)
}

// Drain returns every buffered alert, oldest first, and empties the Center.
// POST: Len() == 0; the result is never nil
func (c *Center) Drain() []selection.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.messages
	c.messages = nil
	if out == nil {
		out = []selection.Message{}
	}
	return out
}

// Reset discards buffered alerts.
func (c *Center) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

// Len returns the number of buffered alerts.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
