// Package frames lists the decorative overlay images available to the booth.
package frames

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/logic/compose"
)

// Extension is the file extension (case-insensitive) of frame assets.
const Extension = ".png"

// ErrNotFound is returned by Lookup for names that are not listed.
var ErrNotFound = errors.New("frame not found")

// Asset is one overlay file.
type Asset struct {
	Name   string `json:"name"`
	Path   string `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Repository reads frame assets from a directory.
type Repository struct {
	dir string
}

// NewRepository returns a repository over dir. The directory is created
// on first List if it does not exist.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the directory being listed.
func (r *Repository) Dir() string { return r.dir }

// List returns all frame assets in directory order. A missing directory is
// created and yields an empty list; other I/O errors are logged and also
// yield an empty list.
func (r *Repository) List() []Asset {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		debug.Info("Frames directory %s missing, creating it", r.dir)
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			debug.Errorf("create frames directory: %v", err)
		}
		return []Asset{}
	}
	if err != nil {
		debug.Errorf("list frames: %v", err)
		return []Asset{}
	}

	assets := make([]Asset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		a, err := Describe(filepath.Join(r.dir, e.Name()))
		if err != nil {
			debug.Warn("frame %s: %v", e.Name(), err)
		}
		assets = append(assets, a)
	}
	debug.Verbose("Frames: %d asset(s) in %s", len(assets), r.dir)
	return assets
}

// Lookup resolves a bare file name to a listed asset.
func (r *Repository) Lookup(name string) (Asset, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return Asset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	for _, a := range r.List() {
		if a.Name == name {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Describe reads the pixel dimensions of the asset at path without
// decoding the whole image. Name and Path are always set.
func Describe(path string) (Asset, error) {
	a := Asset{Name: filepath.Base(path), Path: path}
	f, err := os.Open(path)
	if err != nil {
		return a, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return a, fmt.Errorf("decode config: %w", err)
	}
	a.Width, a.Height = cfg.Width, cfg.Height
	return a, nil
}

// Load decodes the asset image.
func (a Asset) Load() (image.Image, error) {
	return compose.LoadImage(a.Path)
}
