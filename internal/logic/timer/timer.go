// Package timer provides the delayed-callback abstraction used by the
// countdown and the screen flow, so both can run against a fake clock.
package timer

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Stopper cancels a pending callback. Stop reports whether the call
// prevented the callback from running.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
	Now() time.Time
}

type clockScheduler struct {
	c clock.Clock
}

// New returns a Scheduler backed by the wall clock.
func New() Scheduler {
	return NewWithClock(clock.New())
}

// NewWithClock returns a Scheduler backed by c (clock.NewMock() in tests).
func NewWithClock(c clock.Clock) Scheduler {
	return &clockScheduler{c: c}
}

func (s *clockScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return s.c.AfterFunc(d, f)
}

func (s *clockScheduler) Now() time.Time {
	return s.c.Now()
}

// Fake is a deterministic Scheduler for tests. Callbacks only run inside
// Advance, synchronously, in due-time order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*fakeTimer
}

type fakeTimer struct {
	f       *Fake
	due     time.Time
	seq     int
	fn      func()
	stopped bool
}

// NewFake returns a Fake starting at a fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Stopper {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{f: f, due: f.now.Add(d), seq: f.seq, fn: fn}
	f.pending = append(f.pending, t)
	return t
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Pending returns the number of callbacks not yet run or stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every callback that
// becomes due, including ones scheduled by earlier callbacks.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.popDue(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.due
		f.mu.Unlock()
		next.fn()
	}
}

// popDue removes and returns the earliest live timer due at or before
// target. Caller holds f.mu.
func (f *Fake) popDue(target time.Time) *fakeTimer {
	live := f.pending[:0]
	for _, t := range f.pending {
		if !t.stopped {
			live = append(live, t)
		}
	}
	f.pending = live
	sort.SliceStable(f.pending, func(i, j int) bool {
		if f.pending[i].due.Equal(f.pending[j].due) {
			return f.pending[i].seq < f.pending[j].seq
		}
		return f.pending[i].due.Before(f.pending[j].due)
	})
	if len(f.pending) == 0 || f.pending[0].due.After(target) {
		return nil
	}
	t := f.pending[0]
	f.pending = f.pending[1:]
	return t
}

func (t *fakeTimer) Stop() bool {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.stopped {
		return false
	}
	for _, p := range t.f.pending {
		if p == t {
			t.stopped = true
			return true
		}
	}
	return false
}
