package report

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"quizhub/internal/quiz"
)

type Service struct {
	db *sql.DB
}

type QuizSummary struct {
	QuizID            int64   `json:"quiz_id"`
	Participants      int     `json:"participants"`
	AveragePercentage float64 `json:"average_percentage"`
	HighestPercentage int     `json:"highest_percentage"`
	LowestPercentage  int     `json:"lowest_percentage"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// SummaryByQuiz aggregates the stored attempts of a quiz. A quiz without
// attempts yields zero values.
func (s *Service) SummaryByQuiz(ctx context.Context, quizID, actorID int64) (*QuizSummary, error) {
	authorID, err := quiz.LookupAuthor(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	if authorID != actorID {
		return nil, quiz.ErrForbidden
	}

	var (
		participants int
		avg          sql.NullFloat64
		highest      sql.NullInt64
		lowest       sql.NullInt64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(percentage)::float8, MAX(percentage), MIN(percentage)
		FROM quiz_attempts
		WHERE quiz_id = $1
	`, quizID).Scan(&participants, &avg, &highest, &lowest)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	return &QuizSummary{
		QuizID:            quizID,
		Participants:      participants,
		AveragePercentage: roundTo(avg.Float64, 2),
		HighestPercentage: int(highest.Int64),
		LowestPercentage:  int(lowest.Int64),
	}, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
