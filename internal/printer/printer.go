// Package printer turns a composite photo into a printed A4 page, or a saved
// file when no printer is available.
package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/draw"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// ErrNoPrinter means there is no printing subsystem or no default printer.
var ErrNoPrinter = errors.New("no default printer")

// A4 page in millimetres.
const (
	pageW = 210.0
	pageH = 297.0
)

// Runner executes an external command with stdin and returns its combined
// output.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	return cmd.CombinedOutput()
}

// Saver keeps a copy of a photo; implemented by store.Store.
type Saver interface {
	SavePhoto(ctx context.Context, t time.Time, img image.Image) (string, error)
	Location(key string) string
}

// Options configures a Dispatcher.
type Options struct {
	Width         int    // print resolution, pixels
	Height        int    // print resolution, pixels
	Title         string // job title
	Command       string // "lp"
	StatusCommand string // "lpstat"
	SaveAlways    bool   // also save when printing succeeded
}

// Result describes what happened to one photo.
type Result struct {
	Printed bool   // submitted to the printer
	Job     string // print request id, if lp reported one
	Saved   string // location of the saved copy, if any
}

// Outcome is a one-word summary for the session journal.
func (r Result) Outcome() string {
	switch {
	case r.Printed:
		return "printed"
	case r.Saved != "":
		return "saved"
	}
	return "failed"
}

// Dispatcher prints or saves composite photos.
type Dispatcher struct {
	opts     Options
	run      Runner
	lookPath func(string) (string, error)
	saver    Saver
	now      func() time.Time
}

// New returns a Dispatcher using the system commands. saver may be nil,
// in which case nothing is ever saved.
func New(opts Options, saver Saver, now func() time.Time) *Dispatcher {
	if opts.Width <= 0 {
		opts.Width = 2480
	}
	if opts.Height <= 0 {
		opts.Height = 3508
	}
	if opts.Command == "" {
		opts.Command = "lp"
	}
	if opts.StatusCommand == "" {
		opts.StatusCommand = "lpstat"
	}
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		opts:     opts,
		run:      ExecRunner{},
		lookPath: exec.LookPath,
		saver:    saver,
		now:      now,
	}
}

// WithRunner replaces the command runner and PATH lookup (tests).
func (d *Dispatcher) WithRunner(r Runner, lookPath func(string) (string, error)) *Dispatcher {
	d.run = r
	d.lookPath = lookPath
	return d
}

// Available returns nil when a default printer can accept jobs, or an
// error wrapping ErrNoPrinter.
func (d *Dispatcher) Available(ctx context.Context) error {
	if _, err := d.lookPath(d.opts.Command); err != nil {
		return fmt.Errorf("%w: %s not found", ErrNoPrinter, d.opts.Command)
	}
	out, err := d.run.Run(ctx, nil, d.opts.StatusCommand, "-d")
	if err != nil {
		return fmt.Errorf("%w: %s -d: %v", ErrNoPrinter, d.opts.StatusCommand, err)
	}
	if !strings.Contains(string(out), "system default destination:") {
		return fmt.Errorf("%w: %s", ErrNoPrinter, strings.TrimSpace(string(out)))
	}
	return nil
}

// Dispatch stretches img to the print resolution and submits it as a
// one-page PDF. Saved copies are always the composite as taken, never the
// stretched page. Errors are for logging; callers carry on.
func (d *Dispatcher) Dispatch(ctx context.Context, img image.Image) (Result, error) {
	if err := d.Available(ctx); err != nil {
		debug.Warn("Printer unavailable (%v), saving instead", err)
		return d.save(ctx, img, Result{})
	}

	pdf, err := RenderPDF(Stretch(img, d.opts.Width, d.opts.Height), d.opts.Title)
	if err != nil {
		return Result{}, fmt.Errorf("render print page: %w", err)
	}

	out, err := d.run.Run(ctx, bytes.NewReader(pdf), d.opts.Command, "-t", d.opts.Title)
	if err != nil {
		res := Result{}
		if d.opts.SaveAlways {
			res, _ = d.save(ctx, img, res)
		}
		return res, fmt.Errorf("submit print job: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	res := Result{Printed: true, Job: parseJob(out)}
	debug.Info("Photo sent to printer (job %s)", res.Job)
	if d.opts.SaveAlways {
		return d.save(ctx, img, res)
	}
	return res, nil
}

func (d *Dispatcher) save(ctx context.Context, img image.Image, res Result) (Result, error) {
	if d.saver == nil {
		if res.Printed {
			return res, nil
		}
		return res, fmt.Errorf("no printer and no output store")
	}
	key, err := d.saver.SavePhoto(ctx, d.now(), img)
	if err != nil {
		return res, fmt.Errorf("save photo: %w", err)
	}
	res.Saved = d.saver.Location(key)
	return res, nil
}

var jobRe = regexp.MustCompile(`request id is (\S+)`)

func parseJob(out []byte) string {
	if m := jobRe.FindSubmatch(out); m != nil {
		return string(m[1])
	}
	return ""
}

// Stretch resizes img to exactly w x h, ignoring aspect ratio.
func Stretch(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// RenderPDF lays page out over a full A4 sheet.
func RenderPDF(page image.Image, title string) ([]byte, error) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, page, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("photo", opts, &jpg)
	pdf.ImageOptions("photo", 0, 0, pageW, pageH, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
