package attempt

import (
	"testing"

	"quizhub/internal/quiz"
)

func choiceQuestion(correct int, n int) quiz.Question {
	opts := make([]quiz.Option, n)
	for i := range opts {
		opts[i] = quiz.Option{OptionText: string(rune('a' + i)), IsCorrect: i == correct}
	}
	qType := quiz.TypeTwoChoices
	if n >= 4 {
		qType = quiz.TypeFourChoices
	}
	return quiz.Question{ID: 1, QuestionText: "pick", QuestionType: qType, Options: opts}
}

func inputQuestion(answer string) quiz.Question {
	return quiz.Question{ID: 2, QuestionText: "type", QuestionType: quiz.TypeInput, CorrectAnswer: &answer}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestScoreQuestion_Choice(t *testing.T) {
	tests := []struct {
		name      string
		question  quiz.Question
		answer    *Answer
		reason    string
		answered  bool
		isCorrect *bool
	}{
		{name: "correct", question: choiceQuestion(1, 4), answer: &Answer{OptionIndex: intPtr(1)}, reason: "correct", answered: true, isCorrect: boolPtr(true)},
		{name: "wrong", question: choiceQuestion(1, 4), answer: &Answer{OptionIndex: intPtr(3)}, reason: "wrong", answered: true, isCorrect: boolPtr(false)},
		{name: "out of range", question: choiceQuestion(0, 2), answer: &Answer{OptionIndex: intPtr(5)}, reason: "malformed_payload", answered: true, isCorrect: boolPtr(false)},
		{name: "negative", question: choiceQuestion(0, 2), answer: &Answer{OptionIndex: intPtr(-1)}, reason: "malformed_payload", answered: true, isCorrect: boolPtr(false)},
		{name: "missing answer", question: choiceQuestion(0, 2), answer: nil, reason: "unanswered", answered: false, isCorrect: nil},
		{name: "text for choice", question: choiceQuestion(0, 2), answer: &Answer{Text: strPtr("a")}, reason: "unanswered", answered: false, isCorrect: nil},
		{name: "no correct option", question: choiceQuestion(-1, 2), answer: &Answer{OptionIndex: intPtr(0)}, reason: "malformed_answer_key", answered: false, isCorrect: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertScoreResult(t, ScoreQuestion(tc.question, tc.answer), tc.reason, tc.answered, tc.isCorrect)
		})
	}
}

func TestScoreQuestion_Input(t *testing.T) {
	tests := []struct {
		name      string
		expected  string
		answer    *Answer
		reason    string
		answered  bool
		isCorrect *bool
	}{
		{name: "exact", expected: "Paris", answer: &Answer{Text: strPtr("Paris")}, reason: "correct", answered: true, isCorrect: boolPtr(true)},
		{name: "case and spaces", expected: "Paris", answer: &Answer{Text: strPtr("  pARIS ")}, reason: "correct", answered: true, isCorrect: boolPtr(true)},
		{name: "stored answer padded", expected: " H2O ", answer: &Answer{Text: strPtr("h2o")}, reason: "correct", answered: true, isCorrect: boolPtr(true)},
		{name: "wrong", expected: "Paris", answer: &Answer{Text: strPtr("Lyon")}, reason: "wrong", answered: true, isCorrect: boolPtr(false)},
		{name: "blank", expected: "Paris", answer: &Answer{Text: strPtr("   ")}, reason: "unanswered", answered: false, isCorrect: nil},
		{name: "missing", expected: "Paris", answer: nil, reason: "unanswered", answered: false, isCorrect: nil},
		{name: "empty key", expected: "", answer: &Answer{Text: strPtr("x")}, reason: "malformed_answer_key", answered: false, isCorrect: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertScoreResult(t, ScoreQuestion(inputQuestion(tc.expected), tc.answer), tc.reason, tc.answered, tc.isCorrect)
		})
	}
}

func TestScoreItemChoiceFields(t *testing.T) {
	item := ScoreItem(choiceQuestion(2, 4), &Answer{OptionIndex: intPtr(0)})
	if item.IsCorrect || !item.Answered {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.CorrectIndex == nil || *item.CorrectIndex != 2 {
		t.Fatalf("unexpected correct index %v", item.CorrectIndex)
	}
	if item.SelectedIndex == nil || *item.SelectedIndex != 0 {
		t.Fatalf("unexpected selected index %v", item.SelectedIndex)
	}
	if item.CorrectAnswer != nil || item.GivenText != nil {
		t.Fatalf("expected no text fields on choice item")
	}
}

func TestScoreItemInputFields(t *testing.T) {
	item := ScoreItem(inputQuestion("Paris"), &Answer{Text: strPtr(" paris ")})
	if !item.IsCorrect {
		t.Fatalf("expected correct item %+v", item)
	}
	if item.GivenText == nil || *item.GivenText != "paris" {
		t.Fatalf("unexpected given text %v", item.GivenText)
	}
	if item.CorrectAnswer == nil || *item.CorrectAnswer != "Paris" {
		t.Fatalf("unexpected correct answer %v", item.CorrectAnswer)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{score: 0, total: 0, want: 0},
		{score: 1, total: 3, want: 33},
		{score: 2, total: 3, want: 67},
		{score: 1, total: 8, want: 13},
		{score: 5, total: 5, want: 100},
	}
	for _, tc := range tests {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}

func assertScoreResult(t *testing.T, got ScoreResult, reason string, answered bool, isCorrect *bool) {
	t.Helper()
	if got.Reason != reason {
		t.Fatalf("expected reason=%s, got=%s", reason, got.Reason)
	}
	if got.Answered != answered {
		t.Fatalf("expected answered=%v, got=%v", answered, got.Answered)
	}
	if isCorrect == nil {
		if got.IsCorrect != nil {
			t.Fatalf("expected is_correct=nil, got=%v", *got.IsCorrect)
		}
		return
	}
	if got.IsCorrect == nil {
		t.Fatalf("expected is_correct=%v, got=nil", *isCorrect)
	}
	if *got.IsCorrect != *isCorrect {
		t.Fatalf("expected is_correct=%v, got=%v", *isCorrect, *got.IsCorrect)
	}
}
