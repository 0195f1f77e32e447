package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quizhub/internal/app/apiresp"
	"quizhub/internal/auth"
	"quizhub/internal/quiz"
)

type Handler struct {
	svc attemptService
}

type attemptService interface {
	GetPlay(ctx context.Context, quizID int64) (*PlayQuiz, error)
	Submit(ctx context.Context, in SubmitInput) (*Result, error)
	ListAttempts(ctx context.Context, quizID, actorID int64) ([]AttemptRecord, error)
	ExportAttemptsExcel(ctx context.Context, quizID, actorID int64) ([]byte, error)
}

type submitRequest struct {
	RespondentName string            `json:"respondent_name"`
	Answers        map[string]Answer `json:"answers"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quiz.ParseID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetPlay(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quiz.ParseID(w, r, "id")
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	in := SubmitInput{
		QuizID:         quizID,
		RespondentName: req.RespondentName,
		Answers:        req.Answers,
	}
	if user, ok := auth.CurrentUser(r.Context()); ok {
		in.UserID = user.ID
		if strings.TrimSpace(in.RespondentName) == "" {
			in.RespondentName = user.Name
		}
	}

	res, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, res)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID, ok := quiz.ParseID(w, r, "id")
	if !ok {
		return
	}

	items, err := h.svc.ListAttempts(r.Context(), quizID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteList(w, r, http.StatusOK, items, len(items))
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID, ok := quiz.ParseID(w, r, "id")
	if !ok {
		return
	}

	content, err := h.svc.ExportAttemptsExcel(r.Context(), quizID, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%d-attempts.xlsx"`, quizID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if quiz.WriteError(w, r, err) {
		return
	}
	if errors.Is(err, ErrInvalidInput) {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
}
