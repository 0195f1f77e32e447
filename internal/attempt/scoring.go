package attempt

import (
	"math"
	"strings"

	"quizhub/internal/quiz"
)

// Answer is a respondent's answer to one question. Choice questions use
// OptionIndex and input questions use Text.
type Answer struct {
	OptionIndex *int    `json:"option_index,omitempty"`
	Text        *string `json:"text,omitempty"`
}

type ScoreResult struct {
	Answered  bool   `json:"answered"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
	Reason    string `json:"reason"`
}

type ItemResult struct {
	QuestionID    int64   `json:"question_id"`
	QuestionText  string  `json:"question_text"`
	QuestionType  string  `json:"question_type"`
	Answered      bool    `json:"answered"`
	IsCorrect     bool    `json:"is_correct"`
	Reason        string  `json:"reason"`
	SelectedIndex *int    `json:"selected_index,omitempty"`
	CorrectIndex  *int    `json:"correct_index,omitempty"`
	GivenText     *string `json:"given_text,omitempty"`
	CorrectAnswer *string `json:"correct_answer,omitempty"`
	Explanation   *string `json:"explanation,omitempty"`
}

func ScoreQuestion(q quiz.Question, ans *Answer) ScoreResult {
	if q.IsChoice() {
		return scoreChoice(q, ans)
	}
	return scoreInput(q, ans)
}

func scoreChoice(q quiz.Question, ans *Answer) ScoreResult {
	correct := q.CorrectIndex()
	if correct < 0 {
		return ScoreResult{Reason: "malformed_answer_key"}
	}
	if ans == nil || ans.OptionIndex == nil {
		return ScoreResult{Reason: "unanswered"}
	}
	selected := *ans.OptionIndex
	if selected < 0 || selected >= len(q.Options) {
		return ScoreResult{Answered: true, IsCorrect: boolPtr(false), Reason: "malformed_payload"}
	}
	if selected == correct {
		return ScoreResult{Answered: true, IsCorrect: boolPtr(true), Reason: "correct"}
	}
	return ScoreResult{Answered: true, IsCorrect: boolPtr(false), Reason: "wrong"}
}

func scoreInput(q quiz.Question, ans *Answer) ScoreResult {
	if q.CorrectAnswer == nil || normalizeAnswer(*q.CorrectAnswer) == "" {
		return ScoreResult{Reason: "malformed_answer_key"}
	}
	if ans == nil || ans.Text == nil || normalizeAnswer(*ans.Text) == "" {
		return ScoreResult{Reason: "unanswered"}
	}
	if normalizeAnswer(*ans.Text) == normalizeAnswer(*q.CorrectAnswer) {
		return ScoreResult{Answered: true, IsCorrect: boolPtr(true), Reason: "correct"}
	}
	return ScoreResult{Answered: true, IsCorrect: boolPtr(false), Reason: "wrong"}
}

// ScoreItem scores a question and fills in what the respondent sees on the
// results page.
func ScoreItem(q quiz.Question, ans *Answer) ItemResult {
	res := ScoreQuestion(q, ans)
	item := ItemResult{
		QuestionID:   q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Answered:     res.Answered,
		IsCorrect:    res.IsCorrect != nil && *res.IsCorrect,
		Reason:       res.Reason,
		Explanation:  q.Explanation,
	}
	if q.IsChoice() {
		if idx := q.CorrectIndex(); idx >= 0 {
			item.CorrectIndex = &idx
		}
		if ans != nil && ans.OptionIndex != nil {
			v := *ans.OptionIndex
			item.SelectedIndex = &v
		}
		return item
	}
	item.CorrectAnswer = q.CorrectAnswer
	if ans != nil && ans.Text != nil {
		v := strings.TrimSpace(*ans.Text)
		item.GivenText = &v
	}
	return item
}

// Percentage is score/total as a whole percent, rounded half away from zero.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(total)))
}

func normalizeAnswer(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func boolPtr(v bool) *bool {
	return &v
}
