package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/models"
)

func exportFormat(r *http.Request) (string, bool) {
	switch f := r.URL.Query().Get("format"); f {
	case "", FormatCourse:
		return FormatCourse, true
	case FormatGraph:
		return FormatGraph, true
	default:
		return f, false
	}
}

// ExportCourse handles POST /api/export.
//
//	@Summary		Export a course as a downloadable file
//	@Tags			export
//	@Accept			json
//	@Produce		json
//	@Param			format	query		string	false	"Export format"	Enums(course, graph)
//	@Param			body	body		Course	true	"Course to export"
//	@Success		200		{file}		file
//	@Failure		400		{object}	errResponse
//	@Router			/export [post]
func (h *Handler) ExportCourse(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be course or graph"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	course, err := gateway.DecodeCourse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.export(w, course, format)
}

// ExportStoredCourse handles GET /api/courses/{id}/export.
//
//	@Summary		Export a saved course as a downloadable file
//	@Tags			export
//	@Produce		json
//	@Param			id		path		int		true	"Course id"
//	@Param			format	query		string	false	"Export format"	Enums(course, graph)
//	@Success		200		{file}		file
//	@Failure		404		{object}	errResponse
//	@Router			/courses/{id}/export [get]
func (h *Handler) ExportStoredCourse(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be course or graph"))
		return
	}
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
			slog.Error("export course failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.export(w, course, format)
}

func (h *Handler) export(w http.ResponseWriter, course *models.Course, format string) {
	if format == FormatCourse {
		writeDownload(w, slug(course.Topic)+"-course.json", course.Payload())
		return
	}
	graph, err := h.svc.ExportGraph(course)
	if err != nil {
		slog.Error("graph export failed", slog.String("topic", course.Topic), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("X-Entity-Count", strconv.Itoa(graph.Count()))
	writeDownload(w, slug(course.Topic)+"-graph.json", graph)
}
