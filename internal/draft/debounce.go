package draft

import (
	"sync"
	"time"
)

// DefaultDelay is the autosave delay after the last edit.
const DefaultDelay = 250 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via StdAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// StdAfterFunc wraps time.AfterFunc.
func StdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently scheduled task once no newer task has
// been scheduled for the configured delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	after   AfterFunc
	timer   Timer
	pending func()
	gen     uint64
	stopped bool
}

// NewDebouncer returns a debouncer. A nil after uses the real clock.
func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = StdAfterFunc
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, after: after}
}

// Schedule replaces any pending task with fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending task now, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels the pending task and ignores later Schedule calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = nil
	d.stopped = true
}
