// Package compose merges a captured photo with a decorative frame.
package compose

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// FitSize returns the largest size with the aspect ratio of src that fits
// inside dst. The result is floored, so it never exceeds dst on either axis.
func FitSize(src, dst image.Point) image.Point {
	if src.X <= 0 || src.Y <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return image.Point{}
	}
	// Compare dst.X/src.X with dst.Y/src.Y without floats.
	if dst.X*src.Y <= dst.Y*src.X {
		return image.Pt(dst.X, src.Y*dst.X/src.X)
	}
	return image.Pt(src.X*dst.Y/src.Y, dst.Y)
}

// FitRect places the scale-to-fit capture inside a frame of the given size,
// centered. When the leftover space is odd the extra pixel goes to the
// bottom/right.
func FitRect(capture, frame image.Point) image.Rectangle {
	sz := FitSize(capture, frame)
	off := image.Pt((frame.X-sz.X)/2, (frame.Y-sz.Y)/2)
	return image.Rectangle{Min: off, Max: off.Add(sz)}
}

// Compose scales capture to fit the overlay, centers it on a transparent
// canvas of the overlay's size, draws the overlay on top and flattens the
// result onto white. The returned image has the overlay's size, origin at
// (0,0), and is fully opaque.
func Compose(capture, overlay image.Image) *image.RGBA {
	fb := overlay.Bounds()
	size := fb.Size()
	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))

	dst := FitRect(capture.Bounds().Size(), size)
	debug.Verbose("Compose: capture %v -> %v in frame %dx%d", capture.Bounds().Size(), dst, size.X, size.Y)
	draw.CatmullRom.Scale(canvas, dst, capture, capture.Bounds(), draw.Src, nil)

	draw.Draw(canvas, canvas.Bounds(), overlay, fb.Min, draw.Over)

	out := image.NewRGBA(canvas.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), canvas, image.Point{}, draw.Over)
	return out
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// ComposeFile loads the frame asset at path and composes capture into it.
// Nothing is returned on error.
func ComposeFile(capture image.Image, path string) (*image.RGBA, error) {
	if capture == nil {
		return nil, fmt.Errorf("compose: no capture")
	}
	overlay, err := LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("load frame asset: %w", err)
	}
	return Compose(capture, overlay), nil
}
