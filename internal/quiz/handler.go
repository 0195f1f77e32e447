package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quizhub/internal/app/apiresp"
	"quizhub/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc quizService
}

type quizService interface {
	CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error)
	ListQuizzes(ctx context.Context, f ListFilter) (*ListResult, error)
	GetQuiz(ctx context.Context, quizID, viewerID int64) (*Quiz, error)
	UpdateQuiz(ctx context.Context, in UpdateQuizInput) (*Quiz, error)
	DeleteQuiz(ctx context.Context, quizID, actorID int64) error
}

type createQuizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
}

type updateQuizRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CoverImage  *string `json:"cover_image"`
	IsPublished *bool   `json:"is_published"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.CreateQuiz(r.Context(), CreateQuizInput{
		AuthorID:    user.ID,
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	pageSizeRaw := q.Get("page_size")
	if pageSizeRaw == "" {
		pageSizeRaw = q.Get("pageSize")
	}
	pageSize, _ := strconv.Atoi(strings.TrimSpace(pageSizeRaw))
	mine := strings.EqualFold(strings.TrimSpace(q.Get("mine")), "true")

	viewerID := auth.ViewerID(r.Context())
	if mine && viewerID == 0 {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := h.svc.ListQuizzes(r.Context(), ListFilter{
		ViewerID: viewerID,
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
		Mine:     mine,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteList(w, r, http.StatusOK, res, res.Total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetQuiz(r.Context(), quizID, auth.ViewerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req updateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.UpdateQuiz(r.Context(), UpdateQuizInput{
		QuizID:      quizID,
		ActorID:     user.ID,
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteQuiz(r.Context(), quizID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"message": "Quiz deleted successfully"})
}

// WriteError maps quiz errors to HTTP responses. Other packages that check
// authorship with LookupAuthor reuse it.
func WriteError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, ErrQuizNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "Quiz not found")
	case errors.Is(err, ErrForbidden):
		apiresp.WriteError(w, r, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrNoQuestions):
		apiresp.WriteError(w, r, http.StatusConflict, "Add at least one question before publishing.")
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if WriteError(w, r, err) {
		return
	}
	apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
}

// ParseID reads a positive int64 URL parameter, writing a 400 when it is
// malformed.
func ParseID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	return parseID(w, r, key)
}

func parseID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return id, true
}
