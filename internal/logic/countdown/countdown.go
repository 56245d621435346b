// Package countdown sequences the visible countdown that gates the grab:
// N, N-1, ..., 1, then the smile label, then exactly one capture.
package countdown

import (
	"errors"
	"strconv"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/logic/timer"
)

// ErrActive is returned by Start while a countdown is running.
var ErrActive = errors.New("countdown already active")

// State of the countdown.
type State int

const (
	Idle State = iota
	Counting
	Announcing
	Captured
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Counting:
		return "counting"
	case Announcing:
		return "announcing"
	case Captured:
		return "captured"
	}
	return "unknown"
}

// Params configures a Controller.
type Params struct {
	From       int           // first number shown
	Tick       time.Duration // delay between two numbers
	Announce   time.Duration // how long the smile label stays before the grab
	SmileLabel string
}

// Controller runs one countdown at a time. It is not safe for concurrent
// use: Start, Cancel and the scheduled callbacks must all run on the same
// goroutine (the session loop).
type Controller struct {
	p     Params
	sched timer.Scheduler

	// OnLabel is called with every label as it is shown.
	OnLabel func(label string)
	// OnCapture is called once, after the smile label.
	OnCapture func()
	// OnIdle is called when the controller returns to Idle, after a
	// capture or a Cancel.
	OnIdle func()

	state   State
	n       int
	run     int
	pending timer.Stopper
}

// New creates an idle controller.
func New(p Params, sched timer.Scheduler) *Controller {
	if p.SmileLabel == "" {
		p.SmileLabel = "SORRIA!"
	}
	return &Controller{p: p, sched: sched}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Active reports whether a countdown is in progress.
func (c *Controller) Active() bool { return c.state != Idle }

// Labels returns the full label sequence for a countdown from n.
func Labels(n int, smile string) []string {
	out := make([]string, 0, n+1)
	for k := n; k >= 1; k-- {
		out = append(out, strconv.Itoa(k))
	}
	return append(out, smile)
}

// Start begins a new countdown. It returns ErrActive if one is running.
func (c *Controller) Start() error {
	if c.Active() {
		return ErrActive
	}
	c.run++
	c.n = c.p.From
	debug.Verbose("Countdown start from %d (tick=%v, announce=%v)", c.p.From, c.p.Tick, c.p.Announce)
	c.count()
	return nil
}

// Cancel stops a running countdown. No capture fires afterwards.
func (c *Controller) Cancel() {
	if !c.Active() {
		return
	}
	debug.Verbose("Countdown cancelled at %s", c.state)
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.run++
	c.toIdle()
}

// count shows the current number, or moves on to the smile label once
// the numbers are exhausted.
func (c *Controller) count() {
	if c.n <= 0 {
		c.announce()
		return
	}
	c.state = Counting
	c.emit(strconv.Itoa(c.n))
	c.n--
	c.after(c.p.Tick, c.count)
}

func (c *Controller) announce() {
	c.state = Announcing
	c.emit(c.p.SmileLabel)
	c.after(c.p.Announce, c.capture)
}

func (c *Controller) capture() {
	c.state = Captured
	debug.Live("Countdown: capture")
	if c.OnCapture != nil {
		c.OnCapture()
	}
	// OnCapture may already have cancelled us by leaving the screen.
	if c.state == Captured {
		c.toIdle()
	}
}

func (c *Controller) toIdle() {
	c.state = Idle
	if c.OnIdle != nil {
		c.OnIdle()
	}
}

func (c *Controller) emit(label string) {
	debug.Countdown(label)
	if c.OnLabel != nil {
		c.OnLabel(label)
	}
}

// after schedules next for the current run only; a callback that was
// already queued when Cancel ran finds a newer run id and does nothing.
func (c *Controller) after(d time.Duration, next func()) {
	run := c.run
	c.pending = c.sched.AfterFunc(d, func() {
		if c.run != run || !c.Active() {
			return
		}
		c.pending = nil
		next()
	})
}
