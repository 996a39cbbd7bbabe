// Package httpapi exposes one try-on session over HTTP for the app screens.
package httpapi

import (
	"net/http"

	"github.com/fitly/tryon/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// API serves a single session.
type API struct {
	session      *session.Session
	maxPhotoSize int64
}

// NewRouter builds the HTTP handler. maxPhotoSize bounds the buffered upload.
func NewRouter(s *session.Session, maxPhotoSize int64) http.Handler {
	a := &API{session: s, maxPhotoSize: maxPhotoSize}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger,
	)

	r.Get("/healthz", a.health)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", a.getSession)
		r.Post("/reset", a.reset)
		r.Put("/mode", a.setMode)
		r.Put("/active-slot", a.setActiveSlot)
		r.Post("/products", a.selectProduct)
		r.Delete("/products/{slot}", a.clearSlot)
		r.Post("/photo", a.uploadPhoto)
		r.Post("/tryon", a.submit)
	})

	r.Route("/status", func(r chi.Router) {
		r.Get("/", a.status)
		r.Post("/dismiss", a.dismiss)
		r.Get("/stream", a.stream)
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", a.listHistory)
		r.Get("/{id}", a.getHistory)
		r.Post("/{id}/replay", a.replay)
	})

	return r
}
