package docimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptySheet   = errors.New("no data rows found")
	ErrInvalidSheet = errors.New("invalid spreadsheet")
)

// Question types understood by the spreadsheet importer. They match the
// stored question types.
const (
	TypeTwoChoices  = "two_choices"
	TypeFourChoices = "four_choices"
	TypeInput       = "input"
)

const (
	DefaultSheetOptions = 6
	// MaxSheetOptions matches the option letters A to Z accepted by Extract.
	MaxSheetOptions     = 26
)

// SheetColumns is the default header row written by exports and read by imports.
var SheetColumns = SheetHeader(DefaultSheetOptions)

// SheetHeader returns the import header with option_a up to the given number
// of option columns. The count is clamped to 2..MaxSheetOptions.
func SheetHeader(optionCount int) []string {
	if optionCount < 2 {
		optionCount = 2
	}
	if optionCount > MaxSheetOptions {
		optionCount = MaxSheetOptions
	}
	cols := make([]string, 0, optionCount+4)
	cols = append(cols, "question", "type")
	for i := 0; i < optionCount; i++ {
		cols = append(cols, OptionColumn(i))
	}
	return append(cols, "correct", "explanation")
}

// OptionColumn names the header column of the option at index i.
func OptionColumn(i int) string {
	return "option_" + string(rune('a'+i))
}

type SheetQuestion struct {
	Row           int
	QuestionType  string
	QuestionText  string
	Options       []string
	CorrectIndex  int
	CorrectAnswer string
	Explanation   *string
}

type SheetRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type SheetImport struct {
	TotalRows   int             `json:"total_rows"`
	SuccessRows int             `json:"success_rows"`
	FailedRows  int             `json:"failed_rows"`
	Errors      []SheetRowError `json:"errors"`
	Questions   []SheetQuestion `json:"-"`
}

// ReadSpreadsheet reads question rows from the first sheet of an xlsx
// workbook. Rows that fail validation are reported and skipped.
func ReadSpreadsheet(r io.Reader) (*SheetImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"question", "correct"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column %s", ErrInvalidSheet, col)
		}
	}
	optionSlots := 0
	for i := 0; i < MaxSheetOptions; i++ {
		if _, ok := header[OptionColumn(i)]; ok {
			optionSlots = i + 1
		}
	}

	report := &SheetImport{Errors: make([]SheetRowError, 0)}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		rowNo := i + 1
		report.TotalRows++

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		options, err := rowOptions(get, optionSlots)
		if err != nil {
			report.FailedRows++
			report.Errors = append(report.Errors, SheetRowError{Row: rowNo, Error: err.Error()})
			continue
		}

		q, err := sheetQuestion(get("question"), strings.ToLower(get("type")), get("correct"), options)
		if err != nil {
			report.FailedRows++
			report.Errors = append(report.Errors, SheetRowError{Row: rowNo, Error: err.Error()})
			continue
		}
		q.Row = rowNo
		if v := get("explanation"); v != "" {
			q.Explanation = &v
		}
		report.Questions = append(report.Questions, q)
		report.SuccessRows++
	}

	return report, nil
}

// rowOptions reads option cells by letter. Trailing blanks are dropped and a
// blank cell before a filled one is an error, so letter X always names the
// option_x column.
func rowOptions(get func(string) string, slots int) ([]string, error) {
	values := make([]string, slots)
	last := -1
	for i := 0; i < slots; i++ {
		values[i] = get(OptionColumn(i))
		if values[i] != "" {
			last = i
		}
	}
	for i := 0; i < last; i++ {
		if values[i] == "" {
			return nil, fmt.Errorf("%s is blank but a later option is filled", OptionColumn(i))
		}
	}
	return values[:last+1], nil
}

func sheetQuestion(text, qType, correct string, options []string) (SheetQuestion, error) {
	if text == "" {
		return SheetQuestion{}, errors.New("question is required")
	}
	if qType == "" {
		qType = TypeTwoChoices
		if len(options) == 0 {
			qType = TypeInput
		} else if len(options) >= 4 {
			qType = TypeFourChoices
		}
	}

	switch qType {
	case TypeInput:
		if correct == "" {
			return SheetQuestion{}, errors.New("correct answer is required")
		}
		return SheetQuestion{QuestionType: qType, QuestionText: text, CorrectAnswer: correct, CorrectIndex: -1}, nil
	case TypeTwoChoices, TypeFourChoices:
		if len(options) < 2 {
			return SheetQuestion{}, errors.New("at least two options are required")
		}
		letter := strings.ToUpper(correct)
		if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
			return SheetQuestion{}, fmt.Errorf("correct must be an option letter, got %q", correct)
		}
		idx := int(letter[0] - 'A')
		if idx >= len(options) {
			return SheetQuestion{}, fmt.Errorf("correct answer %s has no matching option", letter)
		}
		return SheetQuestion{QuestionType: qType, QuestionText: text, Options: options, CorrectIndex: idx}, nil
	default:
		return SheetQuestion{}, fmt.Errorf("unsupported question type %q", qType)
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
