package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"quizhub/internal/docimport"
	"quizhub/internal/quiz"
)

var (
	ErrNoQuestionsProvided = errors.New("no questions provided")
	ErrNoValidQuestions    = errors.New("no valid questions found")
)

type BulkImportResult struct {
	Message   string          `json:"message"`
	Imported  int             `json:"imported"`
	Questions []quiz.Question `json:"questions"`
}

type DocxImportResult struct {
	Imported      int                      `json:"imported"`
	Skipped       int                      `json:"skipped"`
	TotalBlocks   int                      `json:"total_blocks"`
	SkippedBlocks []docimport.SkippedBlock `json:"skipped_blocks"`
	Message       string                   `json:"message"`
	Questions     []quiz.Question          `json:"questions"`
}

type SheetImportResult struct {
	Report    *docimport.SheetImport `json:"report"`
	Message   string                 `json:"message"`
	Questions []quiz.Question        `json:"questions"`
}

// BulkImport stores questions that a client already extracted. Every record
// is validated again before anything is written.
func (s *Service) BulkImport(ctx context.Context, quizID, actorID int64, parsed []docimport.ParsedQuestion) (*BulkImportResult, error) {
	if len(parsed) == 0 {
		return nil, ErrNoQuestionsProvided
	}

	items := make([]NewQuestion, 0, len(parsed))
	for i, p := range parsed {
		nq, err := NormalizeInput(FromParsed(p))
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		items = append(items, nq)
	}

	if _, err := s.AppendQuestions(ctx, quizID, actorID, items); err != nil {
		return nil, err
	}
	all, err := quiz.ListQuestions(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	return &BulkImportResult{
		Message:   importMessage(len(items), 0),
		Imported:  len(items),
		Questions: all,
	}, nil
}

// ImportDocx extracts question blocks from a Word document and appends the
// valid ones to the quiz.
func (s *Service) ImportDocx(ctx context.Context, quizID, actorID int64, r io.ReaderAt, size int64) (*DocxImportResult, error) {
	if err := requireAuthorTx(ctx, s.db, quizID, actorID); err != nil {
		return nil, err
	}

	text, err := docimport.DocxText(r, size)
	if err != nil {
		return nil, err
	}

	res := docimport.Extract(text)
	if len(res.Questions) == 0 {
		log.Printf("docx import rejected quiz_id=%d total_blocks=%d skipped=%d", quizID, res.TotalBlocks, len(res.Skipped))
		return nil, ErrNoValidQuestions
	}

	items := make([]NewQuestion, 0, len(res.Questions))
	for i, p := range res.Questions {
		nq, err := NormalizeInput(FromParsed(p))
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		items = append(items, nq)
	}

	created, err := s.AppendQuestions(ctx, quizID, actorID, items)
	if err != nil {
		return nil, err
	}

	skipped := res.SkippedCount()
	log.Printf("docx import quiz_id=%d total_blocks=%d imported=%d skipped=%d", quizID, res.TotalBlocks, len(created), skipped)
	return &DocxImportResult{
		Imported:      len(created),
		Skipped:       skipped,
		TotalBlocks:   res.TotalBlocks,
		SkippedBlocks: res.Skipped,
		Message:       importMessage(len(created), skipped),
		Questions:     created,
	}, nil
}

// ImportSheet appends the valid rows of an xlsx workbook to the quiz.
func (s *Service) ImportSheet(ctx context.Context, quizID, actorID int64, r io.Reader) (*SheetImportResult, error) {
	if err := requireAuthorTx(ctx, s.db, quizID, actorID); err != nil {
		return nil, err
	}

	report, err := docimport.ReadSpreadsheet(r)
	if err != nil {
		return nil, err
	}

	items := make([]NewQuestion, 0, len(report.Questions))
	for _, sq := range report.Questions {
		nq, err := NormalizeInput(FromSheet(sq))
		if err != nil {
			report.SuccessRows--
			report.FailedRows++
			report.Errors = append(report.Errors, docimport.SheetRowError{Row: sq.Row, Error: err.Error()})
			continue
		}
		items = append(items, nq)
	}
	if len(items) == 0 {
		return nil, ErrNoValidQuestions
	}

	created, err := s.AppendQuestions(ctx, quizID, actorID, items)
	if err != nil {
		return nil, err
	}
	return &SheetImportResult{
		Report:    report,
		Message:   importMessage(len(created), report.FailedRows),
		Questions: created,
	}, nil
}

func importMessage(imported, skipped int) string {
	msg := fmt.Sprintf("Successfully imported %d questions.", imported)
	if skipped > 0 {
		msg += fmt.Sprintf(" %d question(s) were skipped due to formatting errors.", skipped)
	}
	return msg
}
