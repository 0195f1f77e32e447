package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"quizhub/internal/quiz"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	maxRespondentName   = 100
	anonymousRespondent = "Anonymous"
)

type publishedQuizzes interface {
	GetPublished(ctx context.Context, quizID int64) (*quiz.Quiz, error)
}

type Service struct {
	db      *sql.DB
	quizzes publishedQuizzes
}

// PlayQuiz is a published quiz as respondents see it: no correct answers
// and no explanations.
type PlayQuiz struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	CoverImage    string         `json:"cover_image"`
	QuestionCount int            `json:"question_count"`
	Questions     []PlayQuestion `json:"questions"`
}

type PlayQuestion struct {
	ID           int64    `json:"id"`
	Position     int      `json:"position"`
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	Options      []string `json:"options"`
}

type SubmitInput struct {
	QuizID         int64
	UserID         int64
	RespondentName string
	Answers        map[string]Answer
}

type Result struct {
	AttemptID      int64        `json:"attempt_id"`
	QuizID         int64        `json:"quiz_id"`
	RespondentName string       `json:"respondent_name"`
	Score          int          `json:"score"`
	Total          int          `json:"total"`
	Percentage     int          `json:"percentage"`
	Items          []ItemResult `json:"items"`
	SubmittedAt    time.Time    `json:"submitted_at"`
}

type AttemptRecord struct {
	ID             int64     `json:"id"`
	QuizID         int64     `json:"quiz_id"`
	RespondentName string    `json:"respondent_name"`
	UserID         *int64    `json:"user_id,omitempty"`
	Score          int       `json:"score"`
	Total          int       `json:"total"`
	Percentage     int       `json:"percentage"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

func NewService(db *sql.DB, quizzes publishedQuizzes) *Service {
	return &Service{db: db, quizzes: quizzes}
}

// ToPlay strips answers and explanations from a quiz.
func ToPlay(q *quiz.Quiz) *PlayQuiz {
	out := &PlayQuiz{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		CoverImage:    q.CoverImage,
		QuestionCount: len(q.Questions),
		Questions:     make([]PlayQuestion, 0, len(q.Questions)),
	}
	for _, item := range q.Questions {
		pq := PlayQuestion{
			ID:           item.ID,
			Position:     item.Position,
			QuestionText: item.QuestionText,
			QuestionType: item.QuestionType,
			Options:      make([]string, 0, len(item.Options)),
		}
		for _, o := range item.Options {
			pq.Options = append(pq.Options, o.OptionText)
		}
		out.Questions = append(out.Questions, pq)
	}
	return out
}

func (s *Service) GetPlay(ctx context.Context, quizID int64) (*PlayQuiz, error) {
	q, err := s.quizzes.GetPublished(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return ToPlay(q), nil
}

// Grade scores every question of the quiz against the submitted answers.
// Answers for unknown question ids are ignored.
func Grade(questions []quiz.Question, answers map[string]Answer) (score int, items []ItemResult) {
	items = make([]ItemResult, 0, len(questions))
	for _, q := range questions {
		var ans *Answer
		if a, ok := answers[strconv.FormatInt(q.ID, 10)]; ok {
			ans = &a
		}
		item := ScoreItem(q, ans)
		if item.IsCorrect {
			score++
		}
		items = append(items, item)
	}
	return score, items
}

func NormalizeRespondentName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return anonymousRespondent
	}
	if utf8.RuneCountInString(name) > maxRespondentName {
		name = string([]rune(name)[:maxRespondentName])
	}
	return name
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Result, error) {
	q, err := s.quizzes.GetPublished(ctx, in.QuizID)
	if err != nil {
		return nil, err
	}
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", ErrInvalidInput)
	}

	score, items := Grade(q.Questions, in.Answers)
	res := &Result{
		QuizID:         q.ID,
		RespondentName: NormalizeRespondentName(in.RespondentName),
		Score:          score,
		Total:          len(q.Questions),
		Items:          items,
	}
	res.Percentage = Percentage(res.Score, res.Total)

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	var userID any
	if in.UserID > 0 {
		userID = in.UserID
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO quiz_attempts (quiz_id, respondent_name, user_id, score, total, percentage, answers, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, now())
		RETURNING id, submitted_at
	`, res.QuizID, res.RespondentName, userID, res.Score, res.Total, res.Percentage, string(raw)).Scan(&res.AttemptID, &res.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	return res, nil
}

func (s *Service) ListAttempts(ctx context.Context, quizID, actorID int64) ([]AttemptRecord, error) {
	if err := s.requireAuthor(ctx, quizID, actorID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quiz_id, respondent_name, user_id, score, total, percentage, submitted_at
		FROM quiz_attempts
		WHERE quiz_id = $1
		ORDER BY submitted_at DESC, id DESC
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	items := make([]AttemptRecord, 0)
	for rows.Next() {
		var rec AttemptRecord
		var userID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.QuizID, &rec.RespondentName, &userID, &rec.Score, &rec.Total, &rec.Percentage, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if userID.Valid {
			v := userID.Int64
			rec.UserID = &v
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return items, nil
}

func (s *Service) ExportAttemptsExcel(ctx context.Context, quizID, actorID int64) ([]byte, error) {
	items, err := s.ListAttempts(ctx, quizID, actorID)
	if err != nil {
		return nil, err
	}
	return attemptsWorkbook(items)
}

func attemptsWorkbook(items []AttemptRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Attempts"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := []any{"respondent_name", "score", "total", "percentage", "submitted_at"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{rec.RespondentName, rec.Score, rec.Total, rec.Percentage, rec.SubmittedAt.UTC().Format(time.RFC3339)}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) requireAuthor(ctx context.Context, quizID, actorID int64) error {
	authorID, err := quiz.LookupAuthor(ctx, s.db, quizID)
	if err != nil {
		return err
	}
	if authorID != actorID {
		return quiz.ErrForbidden
	}
	return nil
}
