package docimport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestReadSpreadsheet(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"question", "type", "option_a", "option_b", "option_c", "option_d", "correct", "explanation"},
		{"Capital of France?", "", "London", "Paris", "", "", "b", "Paris is the capital."},
		{"Largest planet?", "", "Mars", "Venus", "Jupiter", "Earth", "C", ""},
		{"Chemical symbol for water?", "input", "", "", "", "", "H2O", ""},
		{},
		{"", "", "x", "y", "", "", "A", ""},
		{"Broken answer", "", "x", "y", "", "", "E", ""},
		{"Unknown type", "essay", "", "", "", "", "A", ""},
	})

	report, err := ReadSpreadsheet(buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.TotalRows != 6 || report.SuccessRows != 3 || report.FailedRows != 3 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Errors) != 3 || report.Errors[0].Row != 6 {
		t.Fatalf("unexpected row errors: %+v", report.Errors)
	}

	q := report.Questions[0]
	if q.QuestionType != TypeTwoChoices || q.CorrectIndex != 1 || len(q.Options) != 2 {
		t.Fatalf("unexpected first question: %+v", q)
	}
	if q.Explanation == nil || *q.Explanation != "Paris is the capital." {
		t.Fatalf("unexpected explanation: %v", q.Explanation)
	}
	if report.Questions[1].QuestionType != TypeFourChoices || report.Questions[1].CorrectIndex != 2 {
		t.Fatalf("unexpected second question: %+v", report.Questions[1])
	}
	if report.Questions[2].QuestionType != TypeInput || report.Questions[2].CorrectAnswer != "H2O" {
		t.Fatalf("unexpected input question: %+v", report.Questions[2])
	}
}

func TestReadSpreadsheetRejectsBadFiles(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		buf := buildWorkbook(t, [][]any{{"question", "correct"}})
		_, err := ReadSpreadsheet(buf)
		if !errors.Is(err, ErrEmptySheet) {
			t.Fatalf("expected ErrEmptySheet, got %v", err)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		buf := buildWorkbook(t, [][]any{{"question"}, {"Q?"}})
		if _, err := ReadSpreadsheet(buf); err == nil {
			t.Fatalf("expected error for missing correct column")
		}
	})

	t.Run("not a workbook", func(t *testing.T) {
		if _, err := ReadSpreadsheet(bytes.NewBufferString("nope")); err == nil {
			t.Fatalf("expected error for invalid workbook")
		}
	})
}

func TestReadSpreadsheetOptionGaps(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"question", "option_a", "option_b", "option_c", "correct"},
		{"Pick C", "wrong1", "", "right", "C"},
		{"Blank answer column", "wrong1", "right", "", "C"},
		{"Trailing blanks", "yes", "no", "", "B"},
	})

	report, err := ReadSpreadsheet(buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.SuccessRows != 1 || report.FailedRows != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.Errors[0].Row != 2 || report.Errors[0].Error != "option_b is blank but a later option is filled" {
		t.Fatalf("unexpected gap error: %+v", report.Errors[0])
	}
	if report.Errors[1].Row != 3 {
		t.Fatalf("unexpected second error: %+v", report.Errors[1])
	}
	q := report.Questions[0]
	if len(q.Options) != 2 || q.Options[q.CorrectIndex] != "no" {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestReadSpreadsheetWideHeader(t *testing.T) {
	header := SheetHeader(8)
	if len(header) != 12 || header[9] != "option_h" {
		t.Fatalf("unexpected header: %v", header)
	}
	row := []any{"Pick G", "", "a", "b", "c", "d", "e", "f", "g", "", "G", ""}
	cols := make([]any, 0, len(header))
	for _, c := range header {
		cols = append(cols, c)
	}

	report, err := ReadSpreadsheet(buildWorkbook(t, [][]any{cols, row}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.SuccessRows != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	q := report.Questions[0]
	if len(q.Options) != 7 || q.CorrectIndex != 6 || q.QuestionType != TypeFourChoices {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestSheetHeaderClamps(t *testing.T) {
	if got := SheetHeader(0); len(got) != 6 {
		t.Fatalf("expected two option columns, got %v", got)
	}
	if got := SheetHeader(40); got[len(got)-3] != "option_z" {
		t.Fatalf("expected option_z as last option, got %v", got)
	}
}
