package question

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"quizhub/internal/app/apiresp"
	"quizhub/internal/docimport"
)

const multipartOverhead int64 = 1 << 20

type bulkImportRequest struct {
	Questions []docimport.ParsedQuestion `json:"questions"`
}

func (h *Handler) BulkImport(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}

	var req bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Questions) == 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "No questions provided")
		return
	}

	res, err := h.svc.BulkImport(r.Context(), quizID, user.ID, req.Questions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, res)
}

func (h *Handler) ImportDocx(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}

	file, filename, size, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(filename), ".docx") {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Please upload a .docx file.")
		return
	}

	res, err := h.svc.ImportDocx(r.Context(), quizID, user.ID, file, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, res)
}

func (h *Handler) ImportXlsx(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}

	file, filename, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Please upload a .xlsx file.")
		return
	}

	res, err := h.svc.ImportSheet(r.Context(), quizID, user.ID, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, res)
}

// FormatGuide describes the accepted document layout.
func (h *Handler) FormatGuide(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, docimport.Guide())
}

type uploadedFile interface {
	Read(p []byte) (int, error)
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (uploadedFile, string, int64, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.importMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.importMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "File is too large.")
			return nil, "", 0, false
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart form")
		return nil, "", 0, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "No file uploaded.")
		return nil, "", 0, false
	}
	if header.Size > h.importMaxBytes {
		_ = file.Close()
		apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "File is too large.")
		return nil, "", 0, false
	}
	return file, header.Filename, header.Size, true
}
