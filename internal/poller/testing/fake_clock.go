// Package testing provides a manually driven clock for poller tests.
package testing

import (
	"sort"
	"sync"
	"time"

	"github.com/rileyhilliard/cloudctl/internal/poller"
)

// FakeClock only moves when Advance is called. Timers due at the same
// instant fire in creation order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

// NewFakeClock returns a clock starting at an arbitrary fixed time.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type fakeTimer struct {
	clock   *FakeClock
	c       chan time.Time
	when    time.Time
	period  time.Duration // zero for one-shot timers
	seq     int
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (c *FakeClock) add(d, period time.Duration) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{
		clock:  c,
		c:      make(chan time.Time, 1),
		when:   c.now.Add(d),
		period: period,
		seq:    c.seq,
	}
	c.timers = append(c.timers, t)
	return t
}

// NewTicker implements poller.Clock.
func (c *FakeClock) NewTicker(d time.Duration) poller.Ticker {
	t := c.add(d, d)
	return tickerAdapter{t}
}

// NewTimer implements poller.Clock.
func (c *FakeClock) NewTimer(d time.Duration) poller.Timer {
	return c.add(d, 0)
}

// tickerAdapter drops Stop's return value to satisfy poller.Ticker.
type tickerAdapter struct{ t *fakeTimer }

func (a tickerAdapter) C() <-chan time.Time { return a.t.c }
func (a tickerAdapter) Stop()               { a.t.Stop() }

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Created returns how many tickers and timers have been created.
func (c *FakeClock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// BlockUntil waits until at least n tickers/timers have been created.
func (c *FakeClock) BlockUntil(n int) {
	for c.Created() < n {
		time.Sleep(time.Millisecond)
	}
}

// Advance moves time forward by d, firing everything that falls due.
// Like the real ticker, a tick is dropped if the previous one wasn't read.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.now.Add(d)
	for {
		due := c.due(target)
		if due == nil {
			break
		}
		c.now = due.when
		select {
		case due.c <- c.now:
		default:
		}
		if due.period > 0 {
			due.when = due.when.Add(due.period)
		} else {
			due.stopped = true
		}
	}
	c.now = target
}

// due returns the earliest active timer at or before target.
func (c *FakeClock) due(target time.Time) *fakeTimer {
	active := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.stopped && !t.when.After(target) {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].when.Equal(active[j].when) {
			return active[i].seq < active[j].seq
		}
		return active[i].when.Before(active[j].when)
	})
	return active[0]
}
