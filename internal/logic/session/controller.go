// Package session drives the booth screens: welcome, frame selection,
// capture with countdown, and preview with printing. All state changes run
// on one goroutine (Run); everything else only posts work to it.
package session

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/looplab/fsm"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/frames"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/journal"
	"github.com/cjeanneret/photobooth/internal/logic/compose"
	"github.com/cjeanneret/photobooth/internal/logic/countdown"
	"github.com/cjeanneret/photobooth/internal/logic/timer"
	"github.com/cjeanneret/photobooth/internal/printer"
)

// FrameSource lists frame assets; implemented by frames.Repository.
type FrameSource interface {
	List() []frames.Asset
	Lookup(name string) (frames.Asset, error)
}

// Printer prints or saves a composite; implemented by printer.Dispatcher.
type Printer interface {
	Dispatch(ctx context.Context, img image.Image) (printer.Result, error)
}

// Journal records finished sessions; implemented by journal.Journal.
type Journal interface {
	Add(ctx context.Context, r journal.Record) (string, error)
}

// Flash is the optional flash LED; implemented by gpio.Flash.
type Flash interface {
	Set(on bool) error
}

// Deps are the collaborators of a Controller. Journal and Flash may be nil.
type Deps struct {
	Frames    FrameSource
	Open      camera.Opener
	Camera    camera.Config
	Printer   Printer
	Journal   Journal
	Flash     Flash
	Scheduler timer.Scheduler
}

// Options are the timings of a Controller.
type Options struct {
	Countdown    countdown.Params
	PollInterval time.Duration // live preview refresh period
	PrintDelay   time.Duration // preview shown before printing
	ReturnDelay  time.Duration // wait after printing before going back to welcome
	OnQuit       func()        // called for IntentQuit
	OnChange     func(State)   // called after every published state change
}

// Controller is the screen flow state machine.
type Controller struct {
	deps  Deps
	opts  Options
	sched timer.Scheduler // posts callbacks onto the loop
	calls chan func()
	done  chan struct{}
	ctx   context.Context

	fsm       *fsm.FSM
	countdown *countdown.Controller
	view      view

	// Loop-owned session state.
	state     State
	selected  *frames.Asset
	cam       camera.Camera
	lastFrame image.Image
	composite *image.RGBA
	polling   bool
	gen       int
	timers    []timer.Stopper
	pollTimer timer.Stopper
	sessionID string
	startedAt time.Time
}

// New builds a controller on the welcome screen. Call Run to start it.
func New(deps Deps, opts Options) *Controller {
	if deps.Open == nil {
		deps.Open = camera.Open
	}
	if deps.Scheduler == nil {
		deps.Scheduler = timer.New()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second / 30
	}
	if opts.Countdown.SmileLabel == "" {
		opts.Countdown.SmileLabel = "SORRIA!"
	}

	c := &Controller{
		deps:  deps,
		opts:  opts,
		calls: make(chan func(), 64),
		done:  make(chan struct{}),
		ctx:   context.Background(),
		state: State{Screen: ScreenWelcome},
	}
	c.view.set(c.state)
	c.sched = loopScheduler{base: deps.Scheduler, post: c.post}

	c.countdown = countdown.New(opts.Countdown, c.sched)
	c.countdown.OnLabel = c.onLabel
	c.countdown.OnCapture = c.grab
	c.countdown.OnIdle = c.onCountdownIdle

	c.fsm = fsm.NewFSM(
		ScreenWelcome,
		fsm.Events{
			{Name: IntentStart, Src: []string{ScreenWelcome}, Dst: ScreenFrameSelect},
			{Name: IntentHome, Src: []string{ScreenFrameSelect}, Dst: ScreenWelcome},
			{Name: IntentSelect, Src: []string{ScreenFrameSelect}, Dst: ScreenCapture},
			{Name: IntentBack, Src: []string{ScreenCapture}, Dst: ScreenFrameSelect},
			{Name: "captured", Src: []string{ScreenCapture}, Dst: ScreenPreview},
			{Name: "timeout", Src: []string{ScreenPreview}, Dst: ScreenWelcome},
		},
		fsm.Callbacks{
			"leave_state": func(_ context.Context, e *fsm.Event) {
				c.cancelTimers()
				c.state.Message = ""
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				debug.Screen(e.Src, e.Dst)
				c.state.Screen = e.Dst
				c.publish()
			},
			"enter_" + ScreenWelcome: func(_ context.Context, e *fsm.Event) {
				c.selected = nil
				c.composite = nil
				c.state.Selected = ""
				c.view.setPhoto(nil)
			},
			"enter_" + ScreenFrameSelect: func(_ context.Context, e *fsm.Event) {
				c.refreshFrames()
			},
			"enter_" + ScreenCapture: func(_ context.Context, e *fsm.Event) {
				c.openCamera()
			},
			"leave_" + ScreenCapture: func(_ context.Context, e *fsm.Event) {
				c.countdown.Cancel()
				c.closeCamera()
			},
			"enter_" + ScreenPreview: func(_ context.Context, e *fsm.Event) {
				c.state.Message = msgPrinting
				c.after(c.opts.PrintDelay, c.print)
			},
		},
	)
	return c
}

// loopScheduler runs timer callbacks on the controller loop.
type loopScheduler struct {
	base timer.Scheduler
	post func(func()) bool
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) timer.Stopper {
	return s.base.AfterFunc(d, func() { s.post(f) })
}

func (s loopScheduler) Now() time.Time { return s.base.Now() }

// post queues f for the loop. It reports false once the loop has exited.
func (c *Controller) post(f func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.calls <- f:
		return true
	case <-c.done:
		return false
	}
}

// Dispatch queues an intent. Intents that make no sense on the current
// screen are logged and dropped by the loop.
func (c *Controller) Dispatch(in Intent) error {
	if err := in.Validate(); err != nil {
		return err
	}
	debug.Live("Intent: %s", in)
	if !c.post(func() { c.handle(in) }) {
		return ErrStopped
	}
	return nil
}

// Run executes queued work until ctx is done, then releases the camera.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	c.post(c.publish)
	defer close(c.done)
	for {
		select {
		case f := <-c.calls:
			f()
		case <-ctx.Done():
			c.shutdown()
			return nil
		}
	}
}

// runPending executes everything already queued, without blocking.
func (c *Controller) runPending() {
	for {
		select {
		case f := <-c.calls:
			f()
		default:
			return
		}
	}
}

func (c *Controller) shutdown() {
	debug.Info("Session: shutting down")
	c.cancelTimers()
	c.countdown.Cancel()
	c.closeCamera()
}

// State returns the published view.
func (c *Controller) State() State { return c.view.get() }

// LiveFrame returns the latest camera frame, or nil.
func (c *Controller) LiveFrame() image.Image {
	live, _ := c.view.images()
	return live
}

// Photo returns the current composite, or nil.
func (c *Controller) Photo() image.Image {
	_, photo := c.view.images()
	return photo
}

func (c *Controller) handle(in Intent) {
	if in.Name == IntentQuit {
		debug.Info("Force quit requested")
		if c.opts.OnQuit != nil {
			c.opts.OnQuit()
		}
		return
	}

	screen := c.fsm.Current()
	if in.Name == IntentPrimary {
		in = c.primary(screen)
		if in.Name == "" {
			debug.Verbose("Primary button ignored on %s", screen)
			return
		}
	}

	switch in.Name {
	case IntentShoot:
		if screen != ScreenCapture {
			debug.Verbose("Intent %s ignored on %s", in, screen)
			return
		}
		if err := c.countdown.Start(); err != nil {
			debug.Verbose("Intent %s ignored: %v", in, err)
		}
		return

	case IntentSelect:
		if !c.fsm.Can(IntentSelect) {
			debug.Verbose("Intent %s ignored on %s", in, screen)
			return
		}
		asset, err := c.deps.Frames.Lookup(in.Frame)
		if err != nil {
			debug.Errorf("select frame: %v", err)
			return
		}
		c.selected = &asset
		c.state.Selected = asset.Name
		c.sessionID = journal.NewID()
		c.startedAt = c.sched.Now()
		debug.Info("Frame selected: %s", asset.Name)

	case IntentBack:
		if c.fsm.Can(IntentBack) && c.selected != nil {
			c.record(journal.OutcomeCancelled, "")
		}
	}

	c.event(in.Name)
}

// primary maps the single physical button to an intent for screen.
func (c *Controller) primary(screen string) Intent {
	switch screen {
	case ScreenWelcome:
		return Intent{Name: IntentStart}
	case ScreenFrameSelect:
		if len(c.state.Frames) > 0 {
			return Intent{Name: IntentSelect, Frame: c.state.Frames[0].Name}
		}
	case ScreenCapture:
		return Intent{Name: IntentShoot}
	}
	return Intent{}
}

func (c *Controller) event(name string) {
	err := c.fsm.Event(c.ctx, name)
	var invalid fsm.InvalidEventError
	switch {
	case err == nil:
	case errors.As(err, &invalid):
		debug.Verbose("Intent %s ignored on %s", name, c.fsm.Current())
	default:
		debug.Errorf("transition %s: %v", name, err)
	}
}

func (c *Controller) publish() {
	c.view.set(c.state)
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.view.get())
	}
}

// after runs f after d unless the screen changes first.
func (c *Controller) after(d time.Duration, f func()) {
	gen := c.gen
	t := c.sched.AfterFunc(d, func() {
		if gen != c.gen {
			return
		}
		f()
	})
	c.timers = append(c.timers, t)
}

func (c *Controller) cancelTimers() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	c.gen++
}

func (c *Controller) refreshFrames() {
	c.state.Frames = c.deps.Frames.List()
	if len(c.state.Frames) == 0 {
		debug.Warn("No frames found")
		c.state.Message = msgNoFrames
	}
}

// --- capture screen ---

func (c *Controller) openCamera() {
	cam, err := c.deps.Open(c.deps.Camera)
	if err != nil {
		debug.Errorf("open camera: %v", err)
		c.state.Camera = false
		c.state.Message = msgNoCamera
		return
	}
	c.cam = cam
	c.state.Camera = true
	c.polling = true
	c.poll()
}

func (c *Controller) closeCamera() {
	c.polling = false
	if c.pollTimer != nil {
		c.pollTimer.Stop()
		c.pollTimer = nil
	}
	c.lastFrame = nil
	c.view.setLive(nil)
	c.state.Camera = false
	c.state.Label = ""
	c.state.Counting = false
	c.setFlash(false)
	if c.cam == nil {
		return
	}
	if err := c.cam.Close(); err != nil {
		debug.Errorf("close camera: %v", err)
	}
	c.cam = nil
	debug.Verbose("Camera released")
}

func (c *Controller) poll() {
	if !c.polling || c.cam == nil {
		return
	}
	img, err := c.cam.Read()
	if err != nil {
		debug.Trace("camera read: %v", err)
	} else {
		c.lastFrame = img
		c.view.setLive(img)
	}
	// Replaced every tick and stopped by closeCamera.
	gen := c.gen
	c.pollTimer = c.sched.AfterFunc(c.opts.PollInterval, func() {
		if gen != c.gen {
			return
		}
		c.poll()
	})
}

func (c *Controller) onLabel(label string) {
	c.state.Label = label
	c.state.Counting = true
	c.state.Message = ""
	if label == c.opts.Countdown.SmileLabel {
		c.setFlash(true)
	}
	c.publish()
}

func (c *Controller) onCountdownIdle() {
	c.setFlash(false)
	c.state.Label = ""
	c.state.Counting = false
	c.publish()
}

// grab takes exactly one frame, composes it and moves to the preview.
// On failure the user stays on the capture screen and the live preview
// keeps running.
func (c *Controller) grab() {
	img := c.readFrame()
	if img == nil {
		debug.Errorf("capture: no frame available")
		c.state.Message = msgNoPhoto
		return
	}
	if c.selected == nil {
		debug.Errorf("capture: no frame asset selected")
		c.state.Message = msgNoPhoto
		return
	}
	out, err := compose.ComposeFile(img, c.selected.Path)
	if err != nil {
		debug.Errorf("compose: %v", err)
		c.state.Message = msgNoPhoto
		return
	}
	debug.Info("Photo composed with %s (%dx%d)", c.selected.Name, out.Bounds().Dx(), out.Bounds().Dy())

	c.composite = out
	c.state.Photo++
	c.view.setPhoto(out)
	c.event("captured")
}

// readFrame pulls a fresh frame, falling back to the last polled one.
func (c *Controller) readFrame() image.Image {
	if c.cam != nil {
		img, err := c.cam.Read()
		if err == nil {
			return img
		}
		debug.Warn("capture read failed, using last preview frame: %v", err)
	}
	return c.lastFrame
}

func (c *Controller) setFlash(on bool) {
	if c.deps.Flash == nil {
		return
	}
	if err := c.deps.Flash.Set(on); err != nil {
		debug.Error(err)
	}
}

// --- preview screen ---

func (c *Controller) print() {
	res := printer.Result{}
	var err error
	if c.deps.Printer != nil && c.composite != nil {
		res, err = c.deps.Printer.Dispatch(c.ctx, c.composite)
	}

	switch {
	case err != nil:
		debug.Errorf("print: %v", err)
		c.state.Message = msgPrintError
	case res.Printed:
		c.state.Message = msgPrinted
	case res.Saved != "":
		c.state.Message = msgSaved
	}
	output := res.Job
	if output == "" {
		output = res.Saved
	}
	c.record(res.Outcome(), output)
	c.publish()

	c.after(c.opts.ReturnDelay, func() { c.event("timeout") })
}

func (c *Controller) record(outcome, output string) {
	if c.deps.Journal == nil || c.selected == nil {
		return
	}
	r := journal.Record{
		ID:         c.sessionID,
		Frame:      c.selected.Name,
		StartedAt:  c.startedAt,
		FinishedAt: c.sched.Now(),
		Outcome:    outcome,
		Output:     output,
	}
	if _, err := c.deps.Journal.Add(c.ctx, r); err != nil {
		debug.Error(err)
	}
}
