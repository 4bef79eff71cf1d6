package debounce

import (
	"sync"
	"time"
)

var afterFunc = time.AfterFunc

// Debouncer runs fn once a burst of triggers has been quiet for delay. fn
// receives how many triggers the burst coalesced.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	fn      func(n int)
	gen     uint64
	pending int
}

func New(delay time.Duration, fn func(n int)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending++
	gen := d.gen
	d.timer = afterFunc(d.delay, func() { d.fire(gen) })
}

// fire ignores callbacks of timers that were superseded or stopped; Stop on a
// timer whose function already started cannot prevent it from running.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == 0 {
		d.mu.Unlock()
		return
	}
	n := d.pending
	d.pending = 0
	d.timer = nil
	d.mu.Unlock()
	d.fn(n)
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.pending = 0
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
