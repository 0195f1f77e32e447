package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"quizhub/internal/app/apiresp"
	"quizhub/internal/auth"
	"quizhub/internal/docimport"
	"quizhub/internal/quiz"
)

const defaultImportMaxBytes int64 = 10 << 20

type Handler struct {
	svc            questionService
	importMaxBytes int64
}

type HandlerConfig struct {
	ImportMaxBytes int64
}

type questionService interface {
	CreateQuestion(ctx context.Context, quizID, actorID int64, in QuestionInput) (*quiz.Question, error)
	ListQuestions(ctx context.Context, quizID, actorID int64) ([]quiz.Question, error)
	UpdateQuestion(ctx context.Context, quizID, questionID, actorID int64, in QuestionInput) (*quiz.Question, error)
	DeleteQuestion(ctx context.Context, quizID, questionID, actorID int64) error
	ReorderQuestions(ctx context.Context, quizID, actorID int64, questionIDs []int64) ([]quiz.Question, error)
	ExportQuestionsExcel(ctx context.Context, quizID, actorID int64) ([]byte, error)
	BulkImport(ctx context.Context, quizID, actorID int64, parsed []docimport.ParsedQuestion) (*BulkImportResult, error)
	ImportDocx(ctx context.Context, quizID, actorID int64, r io.ReaderAt, size int64) (*DocxImportResult, error)
	ImportSheet(ctx context.Context, quizID, actorID int64, r io.Reader) (*SheetImportResult, error)
}

type questionRequest struct {
	QuestionText       string   `json:"question_text"`
	QuestionType       string   `json:"question_type"`
	Options            []string `json:"options"`
	CorrectOptionIndex *int     `json:"correct_option_index"`
	CorrectAnswer      *string  `json:"correct_answer"`
	Explanation        *string  `json:"explanation"`
}

func (req questionRequest) input() QuestionInput {
	return QuestionInput{
		QuestionText:       req.QuestionText,
		QuestionType:       req.QuestionType,
		Options:            req.Options,
		CorrectOptionIndex: req.CorrectOptionIndex,
		CorrectAnswer:      req.CorrectAnswer,
		Explanation:        req.Explanation,
	}
}

type reorderRequest struct {
	QuestionIDs []int64 `json:"question_ids"`
}

func NewHandler(svc *Service, cfg HandlerConfig) *Handler {
	if cfg.ImportMaxBytes <= 0 {
		cfg.ImportMaxBytes = defaultImportMaxBytes
	}
	return &Handler{svc: svc, importMaxBytes: cfg.ImportMaxBytes}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListQuestions(r.Context(), quizID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteList(w, r, http.StatusOK, items, len(items))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.CreateQuestion(r.Context(), quizID, user.ID, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}
	questionID, ok := quiz.ParseID(w, r, "questionID")
	if !ok {
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.UpdateQuestion(r.Context(), quizID, questionID, user.ID, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}
	questionID, ok := quiz.ParseID(w, r, "questionID")
	if !ok {
		return
	}

	if err := h.svc.DeleteQuestion(r.Context(), quizID, questionID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"message": "Question deleted successfully"})
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.svc.ReorderQuestions(r.Context(), quizID, user.ID, req.QuestionIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteList(w, r, http.StatusOK, items, len(items))
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, quizID, ok := authorAndQuiz(w, r)
	if !ok {
		return
	}

	content, err := h.svc.ExportQuestionsExcel(r.Context(), quizID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%d-questions.xlsx"`, quizID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func authorAndQuiz(w http.ResponseWriter, r *http.Request) (*auth.User, int64, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, 0, false
	}
	quizID, ok := quiz.ParseID(w, r, "id")
	if !ok {
		return nil, 0, false
	}
	return user, quizID, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if quiz.WriteError(w, r, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrQuestionNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Question not found")
	case errors.Is(err, ErrQuestionMismatch):
		apiresp.WriteError(w, r, http.StatusBadRequest, "Question list mismatch")
	case errors.Is(err, ErrNoQuestionsProvided):
		apiresp.WriteError(w, r, http.StatusBadRequest, "No questions provided")
	case errors.Is(err, ErrNoValidQuestions):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, "No valid questions found. Please check the file's format and content.")
	case errors.Is(err, docimport.ErrNotDocx):
		apiresp.WriteError(w, r, http.StatusUnsupportedMediaType, "The uploaded file is not a valid .docx document.")
	case errors.Is(err, docimport.ErrEmptySheet), errors.Is(err, docimport.ErrInvalidSheet):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
