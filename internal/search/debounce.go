package search

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid Schedule calls into one fire after a quiet period.
// At most one timer is armed; each Schedule replaces the previous one.
type Debouncer struct {
	clock Clock
	fire  func(query string)

	mu      sync.Mutex
	timer   Timer
	pending string
	armed   bool
	seq     uint64
}

func NewDebouncer(clock Clock, fire func(query string)) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Debouncer{clock: clock, fire: fire}
}

func (d *Debouncer) Schedule(query string, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = query
	d.armed = true
	d.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		// A timer that lost the Stop race must not fire for a replaced query.
		if seq != d.seq || !d.armed {
			d.mu.Unlock()
			return
		}
		latest := d.pending
		d.armed = false
		d.timer = nil
		d.mu.Unlock()

		if d.fire != nil {
			d.fire(latest)
		}
	})
}

func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.armed = false
	d.pending = ""
}

// Pending returns the scheduled query while a timer is armed.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.armed
}
