package service

import (
	"sync"
	"time"
)

// Debouncer commits only the latest pushed value once no new value has
// arrived for the configured delay.
type Debouncer[T any] struct {
	delay  time.Duration
	commit func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	armed   bool
	seq     uint64
}

func NewDebouncer[T any](delay time.Duration, commit func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, commit: commit}
}

// Push replaces the pending value and restarts the quiet period.
func (d *Debouncer[T]) Push(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = value
	d.armed = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush commits the pending value immediately. It reports whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return false
	}
	value := d.take()
	d.mu.Unlock()

	d.commit(value)
	return true
}

// Cancel drops the pending value.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed {
		d.take()
	}
}

// hasPending reports whether a value is waiting to be committed.
func (d *Debouncer[T]) hasPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// A newer Push, Flush or Cancel superseded this timer.
	if !d.armed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	value := d.take()
	d.mu.Unlock()

	d.commit(value)
}

// take must be called with mu held.
func (d *Debouncer[T]) take() T {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	value := d.pending
	d.pending = zero
	d.armed = false
	d.seq++
	return value
}

// Throttler commits at most one value per interval. The first value of a
// window is committed at once; the latest value pushed during the window is
// committed when it closes.
type Throttler[T any] struct {
	interval time.Duration
	commit   func(T)

	mu       sync.Mutex
	inWindow bool
	pending  T
	hasNext  bool
	timer    *time.Timer
	stopped  bool
}

func NewThrottler[T any](interval time.Duration, commit func(T)) *Throttler[T] {
	return &Throttler[T]{interval: interval, commit: commit}
}

func (t *Throttler[T]) Push(value T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.inWindow {
		t.pending = value
		t.hasNext = true
		t.mu.Unlock()
		return
	}
	t.openWindow()
	t.mu.Unlock()

	t.commit(value)
}

// Stop cancels the open window and drops any trailing value.
func (t *Throttler[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.hasNext = false
	if t.timer != nil {
		t.timer.Stop()
	}
}

// openWindow must be called with mu held.
func (t *Throttler[T]) openWindow() {
	t.inWindow = true
	t.timer = time.AfterFunc(t.interval, t.closeWindow)
}

func (t *Throttler[T]) closeWindow() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if !t.hasNext {
		t.inWindow = false
		t.mu.Unlock()
		return
	}
	value := t.pending
	var zero T
	t.pending = zero
	t.hasNext = false
	t.openWindow()
	t.mu.Unlock()

	t.commit(value)
}
