package camera

import (
	"image"
	"image/color"
	"sync"
)

// Mock is a Camera producing colour bars that scroll one step per Read.
// Used for development without a webcam.
type Mock struct {
	mu     sync.Mutex
	w, h   int
	frame  int
	closed bool
}

var bars = []color.RGBA{
	{235, 235, 235, 255},
	{235, 235, 16, 255},
	{16, 235, 235, 255},
	{16, 235, 16, 255},
	{235, 16, 235, 255},
	{235, 16, 16, 255},
	{16, 16, 235, 255},
}

// NewMock returns a mock camera of the given size.
func NewMock(w, h int) *Mock {
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 720
	}
	return &Mock{w: w, h: h}
}

func (m *Mock) Read() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.frame++

	img := image.NewRGBA(image.Rect(0, 0, m.w, m.h))
	barW := m.w/len(bars) + 1
	shift := (m.frame * 4) % m.w
	for x := 0; x < m.w; x++ {
		c := bars[((x+shift)%m.w)/barW]
		for y := 0; y < m.h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Frames returns how many frames were read.
func (m *Mock) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}
