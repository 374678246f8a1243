package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/claude/mapty/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the session controller over HTTP. The browser page delivers
// geolocation, map and form events and polls the render model.
type Server struct {
	actor  *session.Actor
	view   *renderModel
	hub    *hub
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a controller over p whose map and view are recorded for the
// page, and configures all routes. An empty apiKey disables the key check.
func New(p session.Persister, opts session.Options, apiKey string, log *slog.Logger) *Server {
	view := newRenderModel()
	opts.Log = log
	s := &Server{
		actor:  session.NewActor(session.New(p, view, view, opts)),
		view:   view,
		hub:    newHub(),
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// Actor returns the serialized controller so other transports can share it.
func (s *Server) Actor() *session.Actor {
	return s.actor
}

// EventFunc runs one event against the shared controller.
type EventFunc func(fn func(c *session.Controller) error) error

// Do calls f.
func (f EventFunc) Do(fn func(c *session.Controller) error) error { return f(fn) }

// Events returns an EventFunc for another transport. Its events are counted
// under source and pushed to session streams like HTTP events.
func (s *Server) Events(source string) EventFunc {
	return func(fn func(c *session.Controller) error) error {
		return s.dispatch(source, fn)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/api/v1/session", s.handleSession)
	s.router.Get("/api/v1/session/stream", s.handleStream)
	s.router.Get("/api/v1/workouts", s.handleListWorkouts)
	s.router.Get("/api/v1/workouts/{id}", s.handleGetWorkout)

	s.router.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Post("/api/v1/position", s.handlePosition)
		r.Post("/api/v1/position/error", s.handlePositionError)
		r.Post("/api/v1/map/click", s.handleMapClick)
		r.Put("/api/v1/form/kind", s.handleFormKind)
		r.Post("/api/v1/workouts", s.handleSubmit)
		r.Post("/api/v1/workouts/sync", s.handleSync)
		r.Post("/api/v1/workouts/{id}/focus", s.handleFocus)
		r.Delete("/api/v1/workouts/{id}", s.handleDelete)
		r.Delete("/api/v1/workouts", s.handleDeleteAll)
	})
}

// Mount attaches another handler under pattern, e.g. the MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// SetFrontend serves the map page from webFS.
// Unmatched routes serve index.html.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
