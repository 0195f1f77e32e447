package report

import (
	"context"
	"net/http"

	"quizhub/internal/app/apiresp"
	"quizhub/internal/auth"
	"quizhub/internal/quiz"
)

type Handler struct {
	svc reportService
}

type reportService interface {
	SummaryByQuiz(ctx context.Context, quizID, actorID int64) (*QuizSummary, error)
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID, ok := quiz.ParseID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.svc.SummaryByQuiz(r.Context(), quizID, user.ID)
	if err != nil {
		if quiz.WriteError(w, r, err) {
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, summary)
}
