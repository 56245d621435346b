// Command mkframes writes example overlay frames for the booth: A4 PNGs at
// 300 DPI with an opaque border and a transparent centre.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	a4Width  = 2480
	a4Height = 3508
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	pink  = color.NRGBA{R: 255, B: 255, A: 255}
)

type sample struct {
	name string
	draw func(w, h int) (image.Image, error)
}

func samples() []sample {
	return []sample{
		{"moldura_vermelha.png", func(w, h int) (image.Image, error) { return basic(w, h, red, 100), nil }},
		{"moldura_azul_decorada.png", func(w, h int) (image.Image, error) { return decorated(w, h, blue, 80), nil }},
		{"moldura_verde_texto.png", func(w, h int) (image.Image, error) {
			return withText(w, h, green, 100, "CABINE FOTOGRÁFICA")
		}},
		{"moldura_rosa_estrelas.png", func(w, h int) (image.Image, error) { return stars(w, h, pink, 80, 12), nil }},
	}
}

func main() {
	dir := flag.String("dir", "molduras", "output directory")
	width := flag.Int("width", a4Width, "frame width in px")
	height := flag.Int("height", a4Height, "frame height in px")
	flag.Parse()

	if err := generate(*dir, *width, *height); err != nil {
		log.Fatalf("mkframes: %v", err)
	}
	fmt.Printf("%d frames written to %s/\n", len(samples()), *dir)
}

func generate(dir string, w, h int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range samples() {
		img, err := s.draw(w, h)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		path := filepath.Join(dir, s.name)
		if err := gg.SavePNG(path, img); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		fmt.Printf("  %s\n", path)
	}
	return nil
}

// border fills the four edge bands of width b.
func border(dc *gg.Context, w, h int, b float64) {
	W, H := float64(w), float64(h)
	dc.DrawRectangle(0, 0, W, b)
	dc.DrawRectangle(0, H-b, W, b)
	dc.DrawRectangle(0, b, b, H-2*b)
	dc.DrawRectangle(W-b, b, b, H-2*b)
	dc.Fill()
}

func basic(w, h int, c color.Color, b float64) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetColor(c)
	border(dc, w, h, b)
	return dc.Image()
}

func decorated(w, h int, c color.Color, b float64) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetColor(c)
	border(dc, w, h, b)

	// corner discs
	r := b * 0.75
	W, H := float64(w), float64(h)
	for _, p := range [][2]float64{
		{b/2 + r, b/2 + r},
		{W - b/2 - r, b/2 + r},
		{b/2 + r, H - b/2 - r},
		{W - b/2 - r, H - b/2 - r},
	} {
		dc.DrawCircle(p[0], p[1], r)
	}
	dc.Fill()
	return dc.Image()
}

func withText(w, h int, c color.NRGBA, b float64, text string) (image.Image, error) {
	dc := gg.NewContext(w, h)
	dc.SetColor(c)
	border(dc, w, h, b)

	W, H := float64(w), float64(h)
	banner := H * 0.15
	dc.SetColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 180})
	dc.DrawRectangle(b, H-banner-b, W-2*b, banner)
	dc.Fill()

	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: banner * 0.35}))
	dc.SetColor(color.White)
	dc.DrawStringAnchored(text, W/2, H-b-banner/2, 0.5, 0.5)
	return dc.Image(), nil
}

func stars(w, h int, c color.Color, b float64, n int) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetColor(c)
	dc.SetLineWidth(b / 2)
	dc.DrawRectangle(b, b, float64(w)-2*b, float64(h)-2*b)
	dc.Stroke()

	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(cx, cy)
	size := b * 1.5
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		star(dc, cx+radius*math.Cos(a), cy+radius*math.Sin(a), size/2)
	}
	dc.Fill()
	return dc.Image()
}

// star adds a five-pointed star path centred on (x, y).
func star(dc *gg.Context, x, y, outer float64) {
	inner := outer / 2
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := math.Pi / 5 * float64(i)
		px, py := x+r*math.Sin(a), y-r*math.Cos(a)
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.ClosePath()
}
