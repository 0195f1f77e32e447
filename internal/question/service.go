package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizhub/internal/docimport"
	"quizhub/internal/quiz"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionMismatch = errors.New("question list mismatch")
)

type Service struct {
	db *sql.DB
}

// QuestionInput is a question as authors submit it.
type QuestionInput struct {
	QuestionText       string
	QuestionType       string
	Options            []string
	CorrectOptionIndex *int
	CorrectAnswer      *string
	Explanation        *string
}

// NewQuestion is a validated question ready to be stored.
type NewQuestion struct {
	QuestionText  string
	QuestionType  string
	Options       []quiz.Option
	CorrectAnswer *string
	Explanation   *string
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func normalizeQuestionType(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeInput validates a question and converts it to its stored form.
// An empty type is derived from the options: none means input, four or more
// means four_choices, otherwise two_choices.
func NormalizeInput(in QuestionInput) (NewQuestion, error) {
	text := strings.TrimSpace(in.QuestionText)
	if text == "" {
		return NewQuestion{}, fmt.Errorf("%w: question_text is required", ErrInvalidInput)
	}

	options := make([]string, 0, len(in.Options))
	for i, o := range in.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return NewQuestion{}, fmt.Errorf("%w: option %d is empty", ErrInvalidInput, i+1)
		}
		options = append(options, o)
	}

	qType := normalizeQuestionType(in.QuestionType)
	if qType == "" {
		qType = deriveType(len(options))
	}

	out := NewQuestion{
		QuestionText: text,
		QuestionType: qType,
		Options:      make([]quiz.Option, 0, len(options)),
		Explanation:  trimmedPtr(in.Explanation),
	}

	switch qType {
	case quiz.TypeTwoChoices, quiz.TypeFourChoices:
		if len(options) < 2 {
			return NewQuestion{}, fmt.Errorf("%w: at least two options are required", ErrInvalidInput)
		}
		if len(options) > docimport.MaxSheetOptions {
			return NewQuestion{}, fmt.Errorf("%w: at most %d options are allowed", ErrInvalidInput, docimport.MaxSheetOptions)
		}
		if in.CorrectOptionIndex == nil {
			return NewQuestion{}, fmt.Errorf("%w: correct_option_index is required", ErrInvalidInput)
		}
		idx := *in.CorrectOptionIndex
		if idx < 0 || idx >= len(options) {
			return NewQuestion{}, fmt.Errorf("%w: correct_option_index out of range", ErrInvalidInput)
		}
		for i, o := range options {
			out.Options = append(out.Options, quiz.Option{OptionText: o, IsCorrect: i == idx})
		}
	case quiz.TypeInput:
		answer := trimmedPtr(in.CorrectAnswer)
		if answer == nil {
			return NewQuestion{}, fmt.Errorf("%w: correct_answer is required for input questions", ErrInvalidInput)
		}
		out.CorrectAnswer = answer
	default:
		return NewQuestion{}, fmt.Errorf("%w: unsupported question_type %q", ErrInvalidInput, qType)
	}
	return out, nil
}

func deriveType(optionCount int) string {
	switch {
	case optionCount == 0:
		return quiz.TypeInput
	case optionCount >= 4:
		return quiz.TypeFourChoices
	default:
		return quiz.TypeTwoChoices
	}
}

// FromParsed converts an extracted document question. The option at
// CorrectOptionIndex becomes the only correct one.
func FromParsed(p docimport.ParsedQuestion) QuestionInput {
	idx := p.CorrectOptionIndex
	qType := quiz.TypeTwoChoices
	if len(p.Options) >= 4 {
		qType = quiz.TypeFourChoices
	}
	return QuestionInput{
		QuestionText:       p.QuestionText,
		QuestionType:       qType,
		Options:            p.Options,
		CorrectOptionIndex: &idx,
		Explanation:        p.Explanation,
	}
}

// FromSheet converts a spreadsheet row.
func FromSheet(sq docimport.SheetQuestion) QuestionInput {
	in := QuestionInput{
		QuestionText: sq.QuestionText,
		QuestionType: sq.QuestionType,
		Options:      sq.Options,
		Explanation:  sq.Explanation,
	}
	if sq.QuestionType == docimport.TypeInput {
		answer := sq.CorrectAnswer
		in.CorrectAnswer = &answer
		return in
	}
	idx := sq.CorrectIndex
	in.CorrectOptionIndex = &idx
	return in
}

func (s *Service) CreateQuestion(ctx context.Context, quizID, actorID int64, in QuestionInput) (*quiz.Question, error) {
	nq, err := NormalizeInput(in)
	if err != nil {
		return nil, err
	}
	created, err := s.AppendQuestions(ctx, quizID, actorID, []NewQuestion{nq})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// AppendQuestions stores questions after the current last one in a single
// transaction and returns the stored rows.
func (s *Service) AppendQuestions(ctx context.Context, quizID, actorID int64, items []NewQuestion) ([]quiz.Question, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no questions provided", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireAuthorTx(ctx, tx, quizID, actorID); err != nil {
		return nil, err
	}

	var next int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE quiz_id = $1
	`, quizID).Scan(&next); err != nil {
		return nil, fmt.Errorf("query next position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (
			quiz_id, position, question_text, question_type, options, correct_answer, explanation, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5::jsonb, $6, $7, now(), now()
		)
		RETURNING id, quiz_id, position, question_text, question_type, options, correct_answer, explanation, created_at, updated_at
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert question: %w", err)
	}
	defer stmt.Close()

	out := make([]quiz.Question, 0, len(items))
	for i, item := range items {
		optionsRaw, err := encodeOptions(item.Options)
		if err != nil {
			return nil, err
		}
		created, err := quiz.ScanQuestion(stmt.QueryRowContext(ctx,
			quizID,
			next+i,
			item.QuestionText,
			item.QuestionType,
			optionsRaw,
			nullStringPtr(item.CorrectAnswer),
			nullStringPtr(item.Explanation),
		))
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		out = append(out, *created)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE quizzes SET updated_at = now() WHERE id = $1`, quizID); err != nil {
		return nil, fmt.Errorf("touch quiz: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, quizID, questionID, actorID int64, in QuestionInput) (*quiz.Question, error) {
	nq, err := NormalizeInput(in)
	if err != nil {
		return nil, err
	}
	optionsRaw, err := encodeOptions(nq.Options)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireAuthorTx(ctx, tx, quizID, actorID); err != nil {
		return nil, err
	}

	updated, err := quiz.ScanQuestion(tx.QueryRowContext(ctx, `
		UPDATE questions
		SET question_text = $3,
			question_type = $4,
			options = $5::jsonb,
			correct_answer = $6,
			explanation = $7,
			updated_at = now()
		WHERE id = $1 AND quiz_id = $2
		RETURNING id, quiz_id, position, question_text, question_type, options, correct_answer, explanation, created_at, updated_at
	`, questionID, quizID, nq.QuestionText, nq.QuestionType, optionsRaw, nullStringPtr(nq.CorrectAnswer), nullStringPtr(nq.Explanation)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// DeleteQuestion removes a question and closes the gap in positions.
func (s *Service) DeleteQuestion(ctx context.Context, quizID, questionID, actorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireAuthorTx(ctx, tx, quizID, actorID); err != nil {
		return err
	}

	var position int
	err = tx.QueryRowContext(ctx, `
		DELETE FROM questions
		WHERE id = $1 AND quiz_id = $2
		RETURNING position
	`, questionID, quizID).Scan(&position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE questions
		SET position = position - 1
		WHERE quiz_id = $1 AND position > $2
	`, quizID, position); err != nil {
		return fmt.Errorf("compact positions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReorderQuestions sets the question order. questionIDs must list every
// question of the quiz exactly once.
func (s *Service) ReorderQuestions(ctx context.Context, quizID, actorID int64, questionIDs []int64) ([]quiz.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireAuthorTx(ctx, tx, quizID, actorID); err != nil {
		return nil, err
	}

	current, err := quiz.ListQuestions(ctx, tx, quizID)
	if err != nil {
		return nil, err
	}
	existing := make([]int64, 0, len(current))
	for _, q := range current {
		existing = append(existing, q.ID)
	}
	if !isPermutation(existing, questionIDs) {
		return nil, ErrQuestionMismatch
	}

	for i, id := range questionIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE questions SET position = $3, updated_at = now()
			WHERE id = $1 AND quiz_id = $2
		`, id, quizID, i+1); err != nil {
			return nil, fmt.Errorf("update position: %w", err)
		}
	}

	reordered, err := quiz.ListQuestions(ctx, tx, quizID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return reordered, nil
}

// ListQuestions returns the questions of a quiz the actor wrote.
func (s *Service) ListQuestions(ctx context.Context, quizID, actorID int64) ([]quiz.Question, error) {
	if err := requireAuthorTx(ctx, s.db, quizID, actorID); err != nil {
		return nil, err
	}
	return quiz.ListQuestions(ctx, s.db, quizID)
}

type authorQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireAuthorTx(ctx context.Context, q authorQueryer, quizID, actorID int64) error {
	var authorID int64
	var err error
	if tx, ok := q.(*sql.Tx); ok {
		authorID, err = quiz.LockAuthor(ctx, tx, quizID)
	} else {
		authorID, err = quiz.LookupAuthor(ctx, q, quizID)
	}
	if err != nil {
		return err
	}
	if authorID != actorID {
		return quiz.ErrForbidden
	}
	return nil
}

func isPermutation(existing, proposed []int64) bool {
	if len(existing) != len(proposed) {
		return false
	}
	remaining := make(map[int64]int, len(existing))
	for _, id := range existing {
		remaining[id]++
	}
	for _, id := range proposed {
		if remaining[id] == 0 {
			return false
		}
		remaining[id]--
	}
	return true
}

func encodeOptions(options []quiz.Option) (string, error) {
	if options == nil {
		options = []quiz.Option{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(raw), nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func nullStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
