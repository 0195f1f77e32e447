package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrQuizNotFound = errors.New("quiz not found")
	ErrForbidden    = errors.New("forbidden")
	ErrNoQuestions  = errors.New("cannot publish a quiz without questions")
)

const (
	defaultPageSize = 9
	maxPageSize     = 100
)

type Service struct {
	db            *sql.DB
	publicBaseURL string
}

type Config struct {
	// PublicBaseURL prefixes share links, e.g. https://quiz.example.com.
	PublicBaseURL string
}

type CreateQuizInput struct {
	AuthorID    int64
	Title       string
	Description string
	CoverImage  string
}

type UpdateQuizInput struct {
	QuizID      int64
	ActorID     int64
	Title       *string
	Description *string
	CoverImage  *string
	IsPublished *bool
}

type ListFilter struct {
	ViewerID int64
	Page     int
	PageSize int
	Search   string
	// Mine restricts the list to quizzes written by ViewerID.
	Mine bool
}

type ListResult struct {
	Items    []Quiz `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func NewService(db *sql.DB, cfg Config) *Service {
	return &Service{
		db:            db,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}
}

func (s *Service) CreateQuiz(ctx context.Context, in CreateQuizInput) (*Quiz, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	if in.AuthorID <= 0 {
		return nil, ErrForbidden
	}
	if in.Title == "" || in.Description == "" || in.CoverImage == "" {
		return nil, fmt.Errorf("%w: title, description, and a cover image are required", ErrInvalidInput)
	}

	var q Quiz
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO quizzes (author_id, title, description, cover_image, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, now(), now())
		RETURNING id, author_id, title, description, cover_image, is_published, created_at, updated_at
	`, in.AuthorID, in.Title, in.Description, in.CoverImage).Scan(
		&q.ID, &q.AuthorID, &q.Title, &q.Description, &q.CoverImage, &q.IsPublished, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert quiz: %w", err)
	}
	q.Questions = make([]Question, 0)
	return &q, nil
}

// NormalizeListFilter applies paging defaults and bounds.
func NormalizeListFilter(f ListFilter) ListFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// ListQuizzes returns published quizzes plus the viewer's own drafts,
// newest first.
func (s *Service) ListQuizzes(ctx context.Context, f ListFilter) (*ListResult, error) {
	f = NormalizeListFilter(f)

	where := []string{"(q.is_published = TRUE OR q.author_id = $1)"}
	args := []any{f.ViewerID}
	if f.Mine {
		where = []string{"q.author_id = $1"}
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		where = append(where, fmt.Sprintf("q.title ILIKE $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes q WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count quizzes: %w", err)
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT q.id, q.author_id, q.title, q.description, q.cover_image, q.is_published, q.created_at, q.updated_at,
			(SELECT COUNT(*) FROM questions qs WHERE qs.quiz_id = q.id) AS question_count
		FROM quizzes q
		WHERE %s
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	items := make([]Quiz, 0)
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.AuthorID, &q.Title, &q.Description, &q.CoverImage, &q.IsPublished, &q.CreatedAt, &q.UpdatedAt, &q.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		s.decorate(&q)
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}

	return &ListResult{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// GetQuiz returns a quiz. Unpublished quizzes are only visible to their
// author, and only the author receives the questions with their answers;
// respondents load them through the play view.
func (s *Service) GetQuiz(ctx context.Context, quizID, viewerID int64) (*Quiz, error) {
	q, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	isAuthor := q.AuthorID == viewerID
	if !q.IsPublished && !isAuthor {
		return nil, ErrQuizNotFound
	}

	questions, err := ListQuestions(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	q.QuestionCount = len(questions)
	if isAuthor {
		q.Questions = questions
	}
	s.decorate(q)
	return q, nil
}

// GetPublished returns a published quiz for respondents.
func (s *Service) GetPublished(ctx context.Context, quizID int64) (*Quiz, error) {
	q, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !q.IsPublished {
		return nil, ErrQuizNotFound
	}
	questions, err := ListQuestions(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	q.Questions = questions
	q.QuestionCount = len(questions)
	s.decorate(q)
	return q, nil
}

func (s *Service) UpdateQuiz(ctx context.Context, in UpdateQuizInput) (*Quiz, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	authorID, err := authorOf(ctx, tx, in.QuizID, true)
	if err != nil {
		return nil, err
	}
	if authorID != in.ActorID {
		return nil, ErrForbidden
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	addSet := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		addSet("title", v)
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", ErrInvalidInput)
		}
		addSet("description", v)
	}
	if in.CoverImage != nil {
		v := strings.TrimSpace(*in.CoverImage)
		if v == "" {
			return nil, fmt.Errorf("%w: cover image cannot be empty", ErrInvalidInput)
		}
		addSet("cover_image", v)
	}
	if in.IsPublished != nil {
		if *in.IsPublished {
			var count int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id = $1`, in.QuizID).Scan(&count); err != nil {
				return nil, fmt.Errorf("count questions: %w", err)
			}
			if count == 0 {
				return nil, ErrNoQuestions
			}
		}
		addSet("is_published", *in.IsPublished)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		args = append(args, in.QuizID)
		query := fmt.Sprintf(`UPDATE quizzes SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("update quiz: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetQuiz(ctx, in.QuizID, in.ActorID)
}

func (s *Service) DeleteQuiz(ctx context.Context, quizID, actorID int64) error {
	authorID, err := s.AuthorOf(ctx, quizID)
	if err != nil {
		return err
	}
	if authorID != actorID {
		return ErrForbidden
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

// AuthorOf returns the author of a quiz or ErrQuizNotFound.
func (s *Service) AuthorOf(ctx context.Context, quizID int64) (int64, error) {
	return authorOf(ctx, s.db, quizID, false)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LookupAuthor is AuthorOf for callers holding a *sql.DB or *sql.Tx.
func LookupAuthor(ctx context.Context, q rowQueryer, quizID int64) (int64, error) {
	return authorOf(ctx, q, quizID, false)
}

// LockAuthor is AuthorOf inside a transaction; the quiz row stays locked
// until the transaction ends.
func LockAuthor(ctx context.Context, tx *sql.Tx, quizID int64) (int64, error) {
	return authorOf(ctx, tx, quizID, true)
}

func authorOf(ctx context.Context, q rowQueryer, quizID int64, forUpdate bool) (int64, error) {
	if quizID <= 0 {
		return 0, ErrQuizNotFound
	}
	query := `SELECT author_id FROM quizzes WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var authorID int64
	if err := q.QueryRowContext(ctx, query, quizID).Scan(&authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrQuizNotFound
		}
		return 0, fmt.Errorf("query quiz author: %w", err)
	}
	return authorID, nil
}

func (s *Service) loadQuiz(ctx context.Context, quizID int64) (*Quiz, error) {
	if quizID <= 0 {
		return nil, ErrQuizNotFound
	}
	var q Quiz
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, description, cover_image, is_published, created_at, updated_at
		FROM quizzes
		WHERE id = $1
	`, quizID).Scan(&q.ID, &q.AuthorID, &q.Title, &q.Description, &q.CoverImage, &q.IsPublished, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("query quiz: %w", err)
	}
	return &q, nil
}

func (s *Service) decorate(q *Quiz) {
	q.ShareURL = nil
	if q.IsPublished {
		u := ShareURL(s.publicBaseURL, q.ID)
		q.ShareURL = &u
	}
}

// ShareURL is the public link respondents open to take a quiz.
func ShareURL(baseURL string, quizID int64) string {
	return fmt.Sprintf("%s/quizzes/%d/published", strings.TrimRight(baseURL, "/"), quizID)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
