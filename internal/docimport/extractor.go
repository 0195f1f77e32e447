package docimport

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ParsedQuestion is one question recovered from imported text.
type ParsedQuestion struct {
	QuestionText       string   `json:"question_text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	Explanation        *string  `json:"explanation,omitempty"`
}

type SkipReason string

const (
	SkipMissingQuestionText SkipReason = "missing_question_text"
	SkipMissingCorrect      SkipReason = "missing_correct_answer"
	SkipMissingOptions      SkipReason = "missing_options"
	SkipEmptyOption         SkipReason = "empty_option"
	SkipTooFewOptions       SkipReason = "too_few_options"
	SkipAnswerOutOfRange    SkipReason = "answer_out_of_range"
)

type SkippedBlock struct {
	Index   int        `json:"index"`
	Reason  SkipReason `json:"reason"`
	Excerpt string     `json:"excerpt"`
}

type Result struct {
	Questions   []ParsedQuestion `json:"questions"`
	TotalBlocks int              `json:"total_blocks"`
	Skipped     []SkippedBlock   `json:"skipped"`
}

func (r Result) SkippedCount() int {
	return r.TotalBlocks - len(r.Questions)
}

const excerptRunes = 80

var (
	blockBoundary  = regexp.MustCompile(`\d+\.\s`)
	questionPrefix = regexp.MustCompile(`^\d+\.\s`)
	optionMarker   = regexp.MustCompile(`(?:^|\s)([A-Z])\.`)
	firstOption    = regexp.MustCompile(`(?:^|\s)(A)\.`)
	correctMarker  = regexp.MustCompile(`Correct Answer:\s*([A-Z])`)
	explainMarker  = regexp.MustCompile(`(?s)Explanation:\s*(.*)`)
)

// blockOutcome is either a parsed question or the reason the block was dropped.
type blockOutcome struct {
	question *ParsedQuestion
	skip     SkipReason
}

// ParseQuestions returns the valid questions in text together with the
// number of candidate blocks that were found before filtering.
func ParseQuestions(text string) ([]ParsedQuestion, int) {
	res := Extract(text)
	return res.Questions, res.TotalBlocks
}

// Extract splits text into numbered blocks and parses each one on its own.
// Malformed blocks are recorded in Skipped and never stop the batch.
func Extract(text string) Result {
	blocks := splitBlocks(normalizeText(text))
	res := Result{
		Questions:   make([]ParsedQuestion, 0, len(blocks)),
		TotalBlocks: len(blocks),
		Skipped:     make([]SkippedBlock, 0),
	}
	for i, block := range blocks {
		out := parseBlock(block)
		if out.question != nil {
			res.Questions = append(res.Questions, *out.question)
			continue
		}
		res.Skipped = append(res.Skipped, SkippedBlock{
			Index:   i + 1,
			Reason:  out.skip,
			Excerpt: excerpt(block),
		})
	}
	return res
}

var textNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\u00a0", " ", "\u2028", "\n", "\u2029", "\n")

func normalizeText(text string) string {
	return textNormalizer.Replace(text)
}

func splitBlocks(text string) []string {
	locs := blockBoundary.FindAllStringIndex(text, -1)
	starts := make([]int, 0, len(locs)+1)
	starts = append(starts, 0)
	for _, loc := range locs {
		if loc[0] > 0 {
			starts = append(starts, loc[0])
		}
	}

	blocks := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		block := text[start:end]
		if strings.TrimSpace(block) == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func parseBlock(block string) blockOutcome {
	prefix := questionPrefix.FindStringIndex(block)
	if prefix == nil {
		return blockOutcome{skip: SkipMissingQuestionText}
	}
	body := block[prefix[1]:]

	// Submatch 2..3 is the "A" itself, past any leading whitespace.
	first := firstOption.FindStringSubmatchIndex(body)
	if first == nil {
		return blockOutcome{skip: SkipMissingQuestionText}
	}
	questionText := strings.TrimSpace(body[:first[2]])
	if questionText == "" {
		return blockOutcome{skip: SkipMissingQuestionText}
	}

	correct := correctMarker.FindStringSubmatchIndex(block)
	if correct == nil {
		return blockOutcome{skip: SkipMissingCorrect}
	}
	letter := block[correct[2]:correct[3]]

	var explanation *string
	if m := explainMarker.FindStringSubmatch(block); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			explanation = &v
		}
	}

	optionsStart := prefix[1] + first[2]
	optionsEnd := strings.Index(block[optionsStart:], "Correct Answer:")
	if optionsEnd <= 0 {
		return blockOutcome{skip: SkipMissingOptions}
	}
	options, reason := splitOptions(block[optionsStart : optionsStart+optionsEnd])
	if reason != "" {
		return blockOutcome{skip: reason}
	}

	idx := int(letter[0] - 'A')
	if idx < 0 || idx >= len(options) {
		return blockOutcome{skip: SkipAnswerOutOfRange}
	}

	return blockOutcome{question: &ParsedQuestion{
		QuestionText:       questionText,
		Options:            options,
		CorrectOptionIndex: idx,
		Explanation:        explanation,
	}}
}

func splitOptions(span string) ([]string, SkipReason) {
	locs := optionMarker.FindAllStringSubmatchIndex(span, -1)
	if len(locs) == 0 {
		return nil, SkipMissingOptions
	}

	options := make([]string, 0, len(locs))
	for i, loc := range locs {
		// skip past "X."
		start := loc[3] + 1
		end := len(span)
		if i+1 < len(locs) {
			end = locs[i+1][2]
		}
		if start > end {
			start = end
		}
		text := strings.TrimSpace(span[start:end])
		if text == "" {
			return nil, SkipEmptyOption
		}
		options = append(options, text)
	}
	if len(options) < 2 {
		return nil, SkipTooFewOptions
	}
	return options, ""
}

func excerpt(block string) string {
	line := strings.TrimSpace(block)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if utf8.RuneCountInString(line) <= excerptRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:excerptRunes]) + "..."
}
