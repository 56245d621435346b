package session

import (
	"errors"
	"fmt"
)

// Intent names, as emitted by the page and the GPIO button.
const (
	IntentStart   = "start"   // welcome: begin
	IntentHome    = "home"    // frame select: back to welcome
	IntentSelect  = "select"  // frame select: choose Frame
	IntentBack    = "back"    // capture: back to frame select
	IntentShoot   = "shoot"   // capture: start the countdown
	IntentPrimary = "primary" // single physical button, meaning depends on the screen
	IntentQuit    = "quit"    // force quit, any screen
)

var (
	// ErrUnknownIntent is returned by Dispatch for names it does not know.
	ErrUnknownIntent = errors.New("unknown intent")
	// ErrStopped is returned by Dispatch once the loop has exited.
	ErrStopped = errors.New("session loop stopped")
)

// Intent is a user request, consumed by the controller loop.
type Intent struct {
	Name  string `json:"name"`
	Frame string `json:"frame,omitempty"` // frame asset name, for IntentSelect
}

func (i Intent) String() string {
	if i.Frame != "" {
		return i.Name + "(" + i.Frame + ")"
	}
	return i.Name
}

// Validate checks the intent name and required arguments.
func (i Intent) Validate() error {
	switch i.Name {
	case IntentStart, IntentHome, IntentBack, IntentShoot, IntentPrimary, IntentQuit:
		return nil
	case IntentSelect:
		if i.Frame == "" {
			return fmt.Errorf("%s: missing frame", i.Name)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownIntent, i.Name)
}
