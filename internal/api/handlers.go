package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/courseservice"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/parser"
	"github.com/starford/skillpath/internal/prompt"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *courseservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *courseservice.Service) *Handler {
	return &Handler{svc: svc}
}

func courseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// Generate handles POST /api/generate.
//
//	@Summary		Generate a course for a topic
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateRequest	true	"Topic to decompose"
//	@Success		200		{object}	Course
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	var mode prompt.Mode
	if req.Mode != "" {
		m, err := prompt.ParseMode(req.Mode)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("mode must be full or structure"))
			return
		}
		mode = m
	}

	course, err := h.svc.Generate(r.Context(), req.Topic, mode)
	if err != nil {
		var malformed *parser.MalformedResponseError
		switch {
		case errors.Is(err, apperr.ErrEmptyTopic):
			writeJSON(w, http.StatusBadRequest, errorBody("topic is required"))
		case errors.As(err, &malformed):
			writeJSON(w, http.StatusBadGateway, errResponse{
				Error: "failed to parse course structure from LLM response",
				Raw:   malformed.Raw,
			})
		default:
			slog.Error("generate failed", slog.String("topic", req.Topic), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("course generation failed"))
		}
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// ListCourses handles GET /api/courses.
//
//	@Summary		List saved courses, most recently updated first
//	@Tags			courses
//	@Produce		json
//	@Success		200	{object}	CourseListResponse
//	@Router			/courses [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, mode, err := h.svc.ListCourses(r.Context())
	if err != nil {
		writeStoreError(w, "list courses", err)
		return
	}
	writeJSON(w, http.StatusOK, CourseListResponse{
		Courses:         courses,
		UseLocalStorage: mode.UseLocalStorage(),
	})
}

// GetCourse handles GET /api/courses/{id}.
//
//	@Summary		Get a saved course
//	@Tags			courses
//	@Produce		json
//	@Param			id	path		int	true	"Course id"
//	@Success		200	{object}	Course
//	@Failure		404	{object}	errResponse
//	@Router			/courses/{id} [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid course id"))
		return
	}
	course, err := h.svc.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get course failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// SaveCourse handles POST /api/courses.
//
//	@Summary		Save a course, replacing any course with the same topic
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveCourseRequest	true	"Course to save"
//	@Success		200		{object}	SaveCourseResponse
//	@Failure		400		{object}	errResponse
//	@Router			/courses [post]
func (h *Handler) SaveCourse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	var req SaveCourseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	raw := []byte(req.Course)
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = body
	}

	course, err := gateway.DecodeCourse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	id, mode, err := h.svc.SaveCourse(r.Context(), *course)
	if err != nil {
		writeSaveError(w, "save course", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveCourseResponse{
		Success:         true,
		ID:              id,
		Topic:           course.Topic,
		UseLocalStorage: mode.UseLocalStorage(),
	})
}

func writeSaveError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, apperr.ErrInvalidCourseStructure) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeStoreError(w, op, err)
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, apperr.ErrStoreUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("storage unavailable"))
		return
	}
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// DeleteCourse handles DELETE /api/courses/{id}.
//
//	@Summary		Delete a saved course
//	@Tags			courses
//	@Produce		json
//	@Param			id	path		int	true	"Course id"
//	@Success		200	{object}	DeleteCourseResponse
//	@Failure		400	{object}	errResponse
//	@Router			/courses/{id} [delete]
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid course id"))
		return
	}
	mode, err := h.svc.DeleteCourse(r.Context(), id)
	if err != nil {
		writeStoreError(w, "delete course", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteCourseResponse{Success: true, UseLocalStorage: mode.UseLocalStorage()})
}

// Health handles GET /api/health. It re-probes the course store.
//
//	@Summary		Service and storage status
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.svc.ProbeStorage(r.Context())
	mode := h.svc.StorageMode()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		Timestamp:       time.Now().UTC(),
		Storage:         mode,
		UseLocalStorage: mode.UseLocalStorage(),
		VideoSearch:     h.svc.SearchEnabled(),
	})
}
