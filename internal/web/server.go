package web

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
// Journal may be nil.
func NewServer(addr string, broadcaster *StatusBroadcaster, sess Session, fr FrameSource, journal SessionLog) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, sess, fr, journal, subFS),
	}, nil
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	return newRouter(s.handlers)
}

func newRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.ServeIndex)
	r.Get("/state", h.HandleState)
	r.Get("/frames", h.HandleFrames)
	r.Get("/frames/{name}", h.HandleFrameThumb)
	r.Post("/intent/{name}", h.HandleIntent)
	r.Get("/sessions", h.HandleSessions)
	r.Get("/status/stream", h.HandleStatusStream)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/live.jpg", h.HandleLive)
		r.Get("/preview.jpg", h.HandlePreview)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Web UI listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
