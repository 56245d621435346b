package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// BoardDriver drives the booth's pins on a Raspberry Pi through /dev/gpiomem:
// the shutter button (input, pulled up, pressed = LOW) and the optional flash
// LED (output). The button poller and the session loop share it.
type BoardDriver struct {
	mu    sync.Mutex
	modes map[int]PinMode
}

// NewBoardDriver maps the GPIO registers. It fails off-Pi; use the mock
// driver (gpio.mock: true) there.
func NewBoardDriver() (*BoardDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open /dev/gpiomem: %w (set gpio.mock off a Raspberry Pi)", err)
	}
	debug.Info("GPIO: go-rpio driver ready")
	return &BoardDriver{modes: make(map[int]PinMode)}, nil
}

func (d *BoardDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setup(pin, mode)
}

func (d *BoardDriver) setup(pin int, mode PinMode) error {
	p := rpio.Pin(pin)
	switch mode {
	case Output:
		p.Output()
	case Input:
		p.Input()
		p.PullOff()
	case InputPullUp:
		p.Input()
		p.PullUp()
	default:
		return fmt.Errorf("pin %d: unknown mode %d", pin, mode)
	}
	d.modes[pin] = mode
	return nil
}

// WritePin switches the flash LED. A pin that was never set up becomes an
// output.
func (d *BoardDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.modes[pin]; !ok {
		if err := d.setup(pin, Output); err != nil {
			return err
		}
	}
	rpio.WritePin(rpio.Pin(pin), levelState(level))
	return nil
}

// ReadPin samples the button. A pin that was never set up is read as a
// pulled-up input so an unwired button reads released.
func (d *BoardDriver) ReadPin(pin int) (Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.modes[pin]; !ok {
		if err := d.setup(pin, InputPullUp); err != nil {
			return Low, err
		}
	}
	l := rpio.ReadPin(rpio.Pin(pin)) == rpio.High
	debug.GPIO("ReadPin", pin, Level(l))
	return Level(l), nil
}

// Close turns the flash off and returns every used pin to a floating input.
func (d *BoardDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for pin, mode := range d.modes {
		p := rpio.Pin(pin)
		if mode == Output {
			p.Low()
		}
		p.Input()
		p.PullOff()
		debug.Verbose("GPIO: pin %d released", pin)
	}
	d.modes = map[int]PinMode{}
	return rpio.Close()
}

func levelState(l Level) rpio.State {
	if l == High {
		return rpio.High
	}
	return rpio.Low
}
