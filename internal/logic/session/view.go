package session

import (
	"image"
	"sync"

	"github.com/cjeanneret/photobooth/internal/frames"
)

// Screen names.
const (
	ScreenWelcome     = "welcome"
	ScreenFrameSelect = "frame_select"
	ScreenCapture     = "capture"
	ScreenPreview     = "preview"
)

// UI messages.
const (
	msgNoFrames   = "Nenhuma moldura encontrada.\nAdicione arquivos PNG na pasta 'molduras'."
	msgNoCamera   = "Câmera indisponível"
	msgNoPhoto    = "Não foi possível tirar a foto. Tente novamente."
	msgPrinting   = "IMPRIMINDO..."
	msgPrinted    = "Foto enviada para impressão!"
	msgSaved      = "Foto salva!"
	msgPrintError = "Não foi possível imprimir."
)

// State is the published, read-only view of the session for the UI.
type State struct {
	Screen   string         `json:"screen"`
	Frames   []frames.Asset `json:"frames"`
	Selected string         `json:"selected,omitempty"`
	Label    string         `json:"label,omitempty"` // countdown label being shown
	Counting bool           `json:"counting"`
	Camera   bool           `json:"camera"` // live preview available
	Message  string         `json:"message,omitempty"`
	Photo    uint64         `json:"photo"` // bumped on every new composite
}

// view holds what web handlers may read while the loop keeps running.
type view struct {
	mu    sync.RWMutex
	state State
	live  image.Image
	photo image.Image
}

func (v *view) set(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

func (v *view) get() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := v.state
	s.Frames = append([]frames.Asset{}, s.Frames...)
	return s
}

func (v *view) setLive(img image.Image) {
	v.mu.Lock()
	v.live = img
	v.mu.Unlock()
}

func (v *view) setPhoto(img image.Image) {
	v.mu.Lock()
	v.photo = img
	v.mu.Unlock()
}

func (v *view) images() (live, photo image.Image) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.live, v.photo
}
