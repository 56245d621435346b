//go:build linux

package camera

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/blackjack/webcam"

	"github.com/cjeanneret/photobooth/internal/debug"
)

const (
	formatMJPEG webcam.PixelFormat = 0x47504A4D // 'MJPG'
	formatYUYV  webcam.PixelFormat = 0x56595559 // 'YUYV'

	bufferCount = 4
)

// V4L2 is a USB/UVC webcam driven through Video4Linux2.
type V4L2 struct {
	cam     *webcam.Webcam
	device  string
	format  webcam.PixelFormat
	width   int
	height  int
	timeout uint32 // seconds
}

// OpenV4L2 opens /dev/video<index>, selects MJPEG (or YUYV when MJPEG is
// not offered) at the requested size and starts streaming. The driver may
// pick a different size; the one it reports is used.
func OpenV4L2(cfg Config) (Camera, error) {
	device := fmt.Sprintf("/dev/video%d", cfg.Index)
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	formats := cam.GetSupportedFormats()
	var format webcam.PixelFormat
	switch {
	case formats[formatMJPEG] != "":
		format = formatMJPEG
	case formats[formatYUYV] != "":
		format = formatYUYV
	default:
		cam.Close()
		return nil, fmt.Errorf("%s: neither MJPEG nor YUYV supported (have %v)", device, formats)
	}

	f, w, h, err := cam.SetImageFormat(format, uint32(cfg.Width), uint32(cfg.Height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%s: set format: %w", device, err)
	}
	if int(w) != cfg.Width || int(h) != cfg.Height {
		debug.Warn("Camera %s: requested %dx%d, driver gave %dx%d", device, cfg.Width, cfg.Height, w, h)
	}
	if err := cam.SetBufferCount(bufferCount); err != nil {
		debug.Verbose("Camera %s: set buffer count: %v", device, err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%s: start streaming: %w", device, err)
	}

	timeout := uint32(cfg.ReadTimeout / time.Second)
	if cfg.ReadTimeout%time.Second != 0 || timeout == 0 {
		timeout++
	}

	debug.Info("Camera %s streaming %s %dx%d", device, formats[f], w, h)
	return &V4L2{
		cam:     cam,
		device:  device,
		format:  f,
		width:   int(w),
		height:  int(h),
		timeout: timeout,
	}, nil
}

// Read waits for a frame, then drains any newer ones already queued so the
// image returned is the most recent.
func (c *V4L2) Read() (image.Image, error) {
	if c.cam == nil {
		return nil, ErrClosed
	}
	if err := c.wait(c.timeout); err != nil {
		return nil, err
	}
	buf, err := c.grab()
	if err != nil {
		return nil, err
	}

	for i := 0; i < bufferCount; i++ {
		if c.wait(0) != nil {
			break
		}
		newer, err := c.grab()
		if err != nil {
			break
		}
		buf = newer
	}
	return c.decode(buf)
}

func (c *V4L2) wait(timeout uint32) error {
	err := c.cam.WaitForFrame(timeout)
	var te *webcam.Timeout
	switch {
	case err == nil:
		return nil
	case errors.As(err, &te):
		return fmt.Errorf("%s: %w", c.device, ErrNoFrame)
	default:
		return fmt.Errorf("%s: wait for frame: %w", c.device, err)
	}
}

// grab copies the dequeued buffer and hands it back to the driver.
func (c *V4L2) grab() ([]byte, error) {
	frame, index, err := c.cam.GetFrame()
	if err != nil {
		return nil, fmt.Errorf("%s: get frame: %w", c.device, err)
	}
	defer c.cam.ReleaseFrame(index)
	if len(frame) == 0 {
		return nil, fmt.Errorf("%s: %w", c.device, ErrNoFrame)
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	debug.Trace("Camera %s: frame %d bytes", c.device, len(buf))
	return buf, nil
}

func (c *V4L2) decode(buf []byte) (image.Image, error) {
	if c.format == formatYUYV {
		return yuyvToImage(buf, c.width, c.height)
	}
	img, err := jpeg.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%s: decode mjpeg: %w", c.device, err)
	}
	return img, nil
}

func (c *V4L2) Close() error {
	if c.cam == nil {
		return nil
	}
	debug.Verbose("Camera %s: closing", c.device)
	_ = c.cam.StopStreaming()
	err := c.cam.Close()
	c.cam = nil
	return err
}
