package question

import (
	"context"
	"fmt"
	"strings"

	"quizhub/internal/docimport"
	"quizhub/internal/quiz"

	"github.com/xuri/excelize/v2"
)

// ExportQuestionsExcel writes the quiz questions with the spreadsheet import
// columns, so the file can be imported again.
func (s *Service) ExportQuestionsExcel(ctx context.Context, quizID, actorID int64) ([]byte, error) {
	items, err := s.ListQuestions(ctx, quizID, actorID)
	if err != nil {
		return nil, err
	}
	return questionsWorkbook(items)
}

func questionsWorkbook(items []quiz.Question) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Questions"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	optionCount := docimport.DefaultSheetOptions
	for _, q := range items {
		if len(q.Options) > optionCount {
			optionCount = len(q.Options)
		}
	}
	columns := docimport.SheetHeader(optionCount)

	header := make([]any, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, q := range items {
		row := questionRow(q, optionCount)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// questionRow follows docimport.SheetHeader(optionCount).
func questionRow(q quiz.Question, optionCount int) []any {
	row := make([]any, 0, optionCount+4)
	row = append(row, q.QuestionText, q.QuestionType)
	for i := 0; i < optionCount; i++ {
		if i < len(q.Options) {
			row = append(row, q.Options[i].OptionText)
			continue
		}
		row = append(row, "")
	}

	correct := ""
	if q.IsChoice() {
		if idx := q.CorrectIndex(); idx >= 0 {
			correct = string(rune('A' + idx))
		}
	} else if q.CorrectAnswer != nil {
		correct = *q.CorrectAnswer
	}
	explanation := ""
	if q.Explanation != nil {
		explanation = strings.TrimSpace(*q.Explanation)
	}
	return append(row, correct, explanation)
}
