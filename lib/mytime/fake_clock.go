package mytime

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced clock. Callbacks scheduled with AfterFunc
// only run from within Advance, on the caller's goroutine.
type FakeClock struct {
	sync.Mutex
	now     time.Time
	seq     int
	pending []*fakeTimer
}

type fakeTimer struct {
	clock *FakeClock
	seq   int
	at    time.Time
	f     func()
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{
		now: start,
	}
}

func (fc *FakeClock) Now() time.Time {
	fc.Lock()
	defer fc.Unlock()

	return fc.now
}

func (fc *FakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	fc.Lock()
	defer fc.Unlock()

	fc.seq++
	t := &fakeTimer{
		clock: fc,
		seq:   fc.seq,
		at:    fc.now.Add(d),
		f:     f,
	}
	fc.pending = append(fc.pending, t)

	return t
}

// Advance moves the clock forward and runs every callback that became due, in
// order of their deadline.
func (fc *FakeClock) Advance(d time.Duration) {
	fc.Lock()
	fc.now = fc.now.Add(d)

	due := []*fakeTimer{}
	remaining := []*fakeTimer{}
	for _, t := range fc.pending {
		if !t.at.After(fc.now) {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	fc.pending = remaining
	fc.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})

	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of callbacks that have not yet fired or been stopped.
func (fc *FakeClock) Pending() int {
	fc.Lock()
	defer fc.Unlock()

	return len(fc.pending)
}

func (t *fakeTimer) Stop() bool {
	t.clock.Lock()
	defer t.clock.Unlock()

	for idx, p := range t.clock.pending {
		if p == t {
			t.clock.pending = append(t.clock.pending[:idx], t.clock.pending[idx+1:]...)
			return true
		}
	}
	return false
}
