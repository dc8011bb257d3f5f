package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
)

const maxImportBytes = 5 << 20

// ImportCourse handles POST /api/courses/import.
//
// The course is read from the multipart field "file" or, for any other
// content type, from the raw request body.
//
//	@Summary		Import a course file
//	@Tags			courses
//	@Accept			multipart/form-data
//	@Accept			json
//	@Produce		json
//	@Param			file	formData	file	false	"Course JSON file"
//	@Success		200		{object}	SaveCourseResponse
//	@Failure		400		{object}	errResponse
//	@Router			/courses/import [post]
func (h *Handler) ImportCourse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	raw, err := readImport(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	course, id, mode, err := h.svc.ImportCourse(r.Context(), raw)
	if err != nil {
		writeSaveError(w, "import course", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveCourseResponse{
		Success:         true,
		ID:              id,
		Topic:           course.Topic,
		UseLocalStorage: mode.UseLocalStorage(),
	})
}

var (
	errImportTooLarge = errors.New("file too large or invalid multipart")
	errImportNoFile   = errors.New("missing 'file' field in multipart form")
	errImportEmpty    = errors.New("empty import body")
)

func readImport(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errImportTooLarge
		}
		if len(raw) == 0 {
			return nil, errImportEmpty
		}
		return raw, nil
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, errImportTooLarge
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errImportNoFile
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, errImportTooLarge
	}
	return raw, nil
}
