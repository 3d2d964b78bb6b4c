// Package web serves the covers over a small JSON HTTP API.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/jkaflik/cover2mqtt/internal/cover"
)

type ctxKey struct{}

type Server struct {
	httpServer *http.Server
	covers     map[string]cover.Cover
	order      []string
}

func New(addr string, covers []cover.Cover) *Server {
	s := &Server{covers: map[string]cover.Cover{}}
	for _, c := range covers {
		s.covers[c.Name()] = c
		s.order = append(s.order, c.Name())
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/covers", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{name}", func(r chi.Router) {
			r.Use(s.coverCtx)
			r.Get("/", s.handleGet)
			r.Post("/position", s.handlePosition)
			r.Post("/stop", s.handleStop)
			r.Post("/calibrate", s.handleCalibrate)
		})
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) coverCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.covers[chi.URLParam(r, "name")]
		if !ok {
			respondError(w, r, http.StatusNotFound, "cover not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	})
}

func coverFrom(r *http.Request) cover.Cover {
	return r.Context().Value(ctxKey{}).(cover.Cover)
}
