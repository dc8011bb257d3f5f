package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/skillpath/internal/courseservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *courseservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/health", h.Health)

	// Generation.
	r.Post("/generate", h.Generate)

	// Saved courses.
	r.Get("/courses", h.ListCourses)
	r.Post("/courses", h.SaveCourse)
	r.Post("/courses/import", h.ImportCourse)
	r.Get("/courses/{id}", h.GetCourse)
	r.Delete("/courses/{id}", h.DeleteCourse)
	r.Get("/courses/{id}/export", h.ExportStoredCourse)

	// Export of an unsaved course.
	r.Post("/export", h.ExportCourse)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
