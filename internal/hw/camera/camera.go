// Package camera opens the capture device and hands out single frames.
package camera

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
)

var (
	// ErrNoFrame is returned by Read when the device produced nothing in time.
	ErrNoFrame = errors.New("no frame available")
	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("camera closed")
)

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract capture device, regardless of how it's driven
// (V4L2 webcam, test pattern, etc.). A Camera has a single owner.
type Camera interface {
	// Read blocks until a frame is available and returns the most recent
	// one. Frames queued before it are dropped.
	Read() (image.Image, error)
	// Close releases the device.
	Close() error
}

// Config selects and parameterizes a capture device.
type Config struct {
	Type        string // "v4l2" or "mock"
	Index       int
	Width       int
	Height      int
	ReadTimeout time.Duration
}

// Opener opens a camera. The session holds one so tests can substitute it.
type Opener func(Config) (Camera, error)

// Open opens the device described by cfg. Failures are returned, never
// retried.
func Open(cfg Config) (Camera, error) {
	debug.Verbose("Camera: opening %s index=%d %dx%d", cfg.Type, cfg.Index, cfg.Width, cfg.Height)
	switch cfg.Type {
	case "mock":
		return NewMock(cfg.Width, cfg.Height), nil
	case "v4l2", "":
		return OpenV4L2(cfg)
	default:
		return nil, fmt.Errorf("unknown camera type %q", cfg.Type)
	}
}
