// Package debounce delays an action until its input has been quiet for a while.
package debounce

import (
	"sync"
	"time"
)

// Timer runs the most recently scheduled function once no new schedule has
// arrived for the given delay. The zero value is ready to use.
type Timer struct {
	mu  sync.Mutex
	t   *time.Timer
	fn  func()
	gen uint64
}

// Reset cancels any pending function and schedules fn to run after delay.
// PRE: fn is non-nil
// POST: Pending() is true until fn runs or the timer is stopped
func (d *Timer) Reset(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.t.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.t = time.AfterFunc(delay, func() { d.fire(gen) })
}

// fire runs fn only if no later Reset or Stop superseded it.
func (d *Timer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.t = nil
	d.mu.Unlock()
	fn()
}

// Stop cancels the pending function, if any, and reports whether one was pending.
func (d *Timer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pending := d.fn != nil
	if d.t != nil {
		d.t.Stop()
	}
	d.gen++
	d.fn = nil
	d.t = nil
	return pending
}

// Flush runs the pending function now on the caller's goroutine.
// It reports whether a function was pending.
func (d *Timer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	if d.t != nil {
		d.t.Stop()
	}
	d.gen++
	d.fn = nil
	d.t = nil
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a function is scheduled and has not yet run.
func (d *Timer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
