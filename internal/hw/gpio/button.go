package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Button is a normally-open push button wired between a pin and ground.
// The pin uses the internal pull-up, so a press reads LOW.
type Button struct {
	drv Driver
	pin int
}

// NewButton configures pin as a pulled-up input.
func NewButton(drv Driver, pin int) (*Button, error) {
	if err := drv.SetupPin(pin, InputPullUp); err != nil {
		return nil, fmt.Errorf("setup button pin %d: %w", pin, err)
	}
	return &Button{drv: drv, pin: pin}, nil
}

// Pressed reports whether the button is currently held down.
func (b *Button) Pressed() (bool, error) {
	l, err := b.drv.ReadPin(b.pin)
	if err != nil {
		return false, err
	}
	return l == Low, nil
}

// Watch samples the button every interval and calls onPress once per
// press (on the released->pressed edge) until ctx is done.
// Read errors are logged and the sample is skipped.
func (b *Button) Watch(ctx context.Context, interval time.Duration, onPress func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	was := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pressed, err := b.Pressed()
		if err != nil {
			debug.Errorf("button pin %d: %v", b.pin, err)
			continue
		}
		if pressed && !was {
			debug.Live("Button pressed (pin %d)", b.pin)
			onPress()
		}
		was = pressed
	}
}

// Flash drives an LED (or relay) that is lit while the smile label is shown.
type Flash struct {
	drv Driver
	pin int
}

// NewFlash configures pin as an output and switches it off.
func NewFlash(drv Driver, pin int) (*Flash, error) {
	if err := drv.SetupPin(pin, Output); err != nil {
		return nil, fmt.Errorf("setup flash pin %d: %w", pin, err)
	}
	f := &Flash{drv: drv, pin: pin}
	if err := f.Set(false); err != nil {
		return nil, err
	}
	return f, nil
}

// Set switches the flash on or off.
func (f *Flash) Set(on bool) error {
	l := Low
	if on {
		l = High
	}
	if err := f.drv.WritePin(f.pin, l); err != nil {
		return fmt.Errorf("flash pin %d: %w", f.pin, err)
	}
	return nil
}
