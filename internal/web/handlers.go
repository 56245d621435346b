package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/gift"
	"github.com/go-chi/chi/v5"
	"golang.org/x/image/draw"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/frames"
	"github.com/cjeanneret/photobooth/internal/journal"
	"github.com/cjeanneret/photobooth/internal/logic/session"
)

const (
	thumbMax     = 400  // frame thumbnails, longest side in px
	previewMax   = 1200 // composite shown on the preview screen
	liveQuality  = 80
	maxIntentLen = 4 << 10
)

// Session is the controller as seen by the handlers.
type Session interface {
	State() session.State
	Dispatch(in session.Intent) error
	LiveFrame() image.Image
	Photo() image.Image
}

// FrameSource lists and resolves frame assets.
type FrameSource interface {
	List() []frames.Asset
	Lookup(name string) (frames.Asset, error)
}

// SessionLog lists recorded sessions.
type SessionLog interface {
	Recent(ctx context.Context, n int) ([]journal.Record, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Session     Session
	Frames      FrameSource
	Journal     SessionLog // may be nil
	staticFS    fs.FS

	// Heartbeat is the idle SSE comment period.
	Heartbeat time.Duration

	thumbMu sync.Mutex
	thumbs  map[string][]byte

	previewMu  sync.Mutex
	previewFor uint64
	preview    []byte
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, sess Session, fr FrameSource, log SessionLog, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Session:     sess,
		Frames:      fr,
		Journal:     log,
		staticFS:    staticFS,
		Heartbeat:   30 * time.Second,
		thumbs:      map[string][]byte{},
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleState returns the current session state as JSON.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.State())
}

// HandleFrames lists the frame assets currently on disk.
func (h *Handlers) HandleFrames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Frames.List())
}

// HandleFrameThumb serves a PNG thumbnail of one frame asset.
func (h *Handlers) HandleFrameThumb(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	asset, err := h.Frames.Lookup(name)
	if err != nil {
		http.Error(w, "frame not found", http.StatusNotFound)
		return
	}

	h.thumbMu.Lock()
	data, ok := h.thumbs[asset.Name]
	h.thumbMu.Unlock()
	if !ok {
		data, err = thumbnail(asset)
		if err != nil {
			debug.Errorf("thumbnail %s: %v", asset.Name, err)
			http.Error(w, "frame unreadable", http.StatusInternalServerError)
			return
		}
		h.thumbMu.Lock()
		h.thumbs[asset.Name] = data
		h.thumbMu.Unlock()
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func thumbnail(asset frames.Asset) ([]byte, error) {
	src, err := asset.Load()
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, hgt := b.Dx(), b.Dy()
	if w > thumbMax || hgt > thumbMax {
		if w >= hgt {
			w, hgt = thumbMax, hgt*thumbMax/w
		} else {
			w, hgt = w*thumbMax/hgt, thumbMax
		}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, max(w, 1), max(hgt, 1)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleIntent handles POST /intent/{name}. The frame for "select" comes
// from a JSON body {"frame": "..."} or a "frame" form value.
func (h *Handlers) HandleIntent(w http.ResponseWriter, r *http.Request) {
	in := session.Intent{Name: chi.URLParam(r, "name")}

	r.Body = http.MaxBytesReader(w, r.Body, maxIntentLen)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		var body struct {
			Frame string `json:"frame"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		in.Frame = body.Frame
	default:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		in.Frame = r.FormValue("frame")
	}

	err := h.Session.Dispatch(in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "intent": in.String()})
	case errors.Is(err, session.ErrStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// HandleLive serves the latest camera frame, mirrored, as JPEG.
func (h *Handlers) HandleLive(w http.ResponseWriter, r *http.Request) {
	src := h.Session.LiveFrame()
	if src == nil {
		http.Error(w, "no live frame", http.StatusNotFound)
		return
	}
	g := gift.New(gift.FlipHorizontal())
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, dst, &jpeg.Options{Quality: liveQuality}); err != nil {
		debug.Trace("live.jpg: %v", err)
	}
}

// HandlePreview serves the current composite, scaled for the screen.
// The encoded image is kept until the session publishes a new photo.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	n := h.Session.State().Photo
	photo := h.Session.Photo()
	if photo == nil {
		http.Error(w, "no photo", http.StatusNotFound)
		return
	}

	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	if h.preview == nil || h.previewFor != n {
		g := gift.New(gift.ResizeToFit(previewMax, previewMax, gift.LinearResampling))
		dst := image.NewRGBA(g.Bounds(photo.Bounds()))
		g.Draw(dst, photo)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.preview, h.previewFor = buf.Bytes(), n
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(h.preview)
}

// HandleSessions returns recent journal records and per-outcome counts.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Recent []journal.Record `json:"recent"`
		Counts map[string]int   `json:"counts"`
	}{Recent: []journal.Record{}, Counts: map[string]int{}}

	if h.Journal != nil {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		recent, err := h.Journal.Recent(r.Context(), n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		counts, err := h.Journal.Counts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Recent, resp.Counts = recent, counts
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("event: " + msg.Event + "\ndata: " + msg.Data + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
