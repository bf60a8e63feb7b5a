package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/static"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.service)
	peopleHandler := handlers.NewPeopleHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	encodeHandler := handlers.NewEncodeHandler(s.service, s.jobManager)
	configHandler := handlers.NewConfigHandler(s.config, s.service)
	requireToken := middleware.RequireAPIToken(s.config.Server.APIToken)

	// Upload page and the form endpoints it posts to
	s.router.Get("/", serveIndex)
	s.router.Handle("/app.js", http.FileServer(static.GetFileSystem()))
	s.router.Post("/recognize", facesHandler.Recognize)
	s.router.With(requireToken).Post("/collect", facesHandler.Collect)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Read-only face operations
		r.Post("/annotate", facesHandler.Annotate)
		r.Post("/compare", facesHandler.Compare)
		r.Get("/people", peopleHandler.List)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/gallery/encode/{jobId}", encodeHandler.Status)
		r.Get("/gallery/encode/{jobId}/events", encodeHandler.Events)

		// Everything that writes the gallery, the dataset or the attendance log
		r.Group(func(r chi.Router) {
			r.Use(requireToken)

			r.Post("/recognize", facesHandler.RecognizeAndMark)
			r.Post("/collect", facesHandler.Collect)
			r.Delete("/people/{name}", peopleHandler.Delete)
			r.Post("/gallery/reload", peopleHandler.Reload)
			r.Post("/gallery/encode", encodeHandler.Start)
			r.Delete("/gallery/encode/{jobId}", encodeHandler.Cancel)
			r.Post("/attendance", attendanceHandler.Mark)
		})
	})
}

// serveIndex serves the embedded upload page
func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(static.IndexHTML())
}
