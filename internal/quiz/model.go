package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeTwoChoices  = "two_choices"
	TypeFourChoices = "four_choices"
	TypeInput       = "input"
)

type Option struct {
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Question struct {
	ID            int64     `json:"id"`
	QuizID        int64     `json:"quiz_id"`
	Position      int       `json:"position"`
	QuestionText  string    `json:"question_text"`
	QuestionType  string    `json:"question_type"`
	Options       []Option  `json:"options"`
	CorrectAnswer *string   `json:"correct_answer,omitempty"`
	Explanation   *string   `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsChoice reports whether q is answered by picking an option.
func (q Question) IsChoice() bool {
	return q.QuestionType == TypeTwoChoices || q.QuestionType == TypeFourChoices
}

// CorrectIndex returns the index of the correct option, or -1.
func (q Question) CorrectIndex() int {
	for i, o := range q.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}

type Quiz struct {
	ID            int64      `json:"id"`
	AuthorID      int64      `json:"author_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	CoverImage    string     `json:"cover_image"`
	IsPublished   bool       `json:"is_published"`
	QuestionCount int        `json:"question_count"`
	ShareURL      *string    `json:"share_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Questions     []Question `json:"questions,omitempty"`
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListQuestions loads the questions of a quiz in position order. It accepts
// a *sql.DB or a *sql.Tx.
func ListQuestions(ctx context.Context, q queryer, quizID int64) ([]Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, quiz_id, position, question_text, question_type, options, correct_answer, explanation, created_at, updated_at
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position ASC, id ASC
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]Question, 0)
	for rows.Next() {
		item, err := ScanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanQuestion reads a question row selected with the column order used by
// ListQuestions.
func ScanQuestion(row rowScanner) (*Question, error) {
	var item Question
	var optionsRaw []byte
	var correctAnswer, explanation sql.NullString
	if err := row.Scan(
		&item.ID,
		&item.QuizID,
		&item.Position,
		&item.QuestionText,
		&item.QuestionType,
		&optionsRaw,
		&correctAnswer,
		&explanation,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Options = make([]Option, 0)
	if len(optionsRaw) > 0 {
		if err := json.Unmarshal(optionsRaw, &item.Options); err != nil {
			return nil, fmt.Errorf("decode question options: %w", err)
		}
	}
	if correctAnswer.Valid {
		item.CorrectAnswer = &correctAnswer.String
	}
	if explanation.Valid {
		item.Explanation = &explanation.String
	}
	return &item, nil
}
