package player

import (
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock  *fakeClock
	c      chan time.Time
	when   time.Time
	period time.Duration
	active bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) add(d, period time.Duration) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, c: make(chan time.Time, 1), when: f.now.Add(d), period: period, active: true}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeClock) NewTimer(d time.Duration) Timer   { return f.add(d, 0) }
func (f *fakeClock) NewTicker(d time.Duration) Ticker { return tickerOf{f.add(d, d)} }

// Advance moves time forward, firing due timers in deadline order.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.now.Add(d)
	for {
		due := make([]*fakeTimer, 0)
		for _, t := range f.timers {
			if t.active && !t.when.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
		t := due[0]
		f.now = t.when
		select {
		case t.c <- t.when:
		default:
		}
		if t.period > 0 {
			t.when = t.when.Add(t.period)
		} else {
			t.active = false
		}
	}
	f.now = target
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

type tickerOf struct{ t *fakeTimer }

func (k tickerOf) C() <-chan time.Time { return k.t.C() }
func (k tickerOf) Stop()               { k.t.Stop() }
