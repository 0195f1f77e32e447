//go:build cucumber

package docimport

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
)

// TestExtractScenarios runs the document extraction feature scenarios.
func TestExtractScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "docx-import",
		ScenarioInitializer: InitializeExtractScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{filepath.Join("testdata", "features", "docx-import.feature")},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeExtractScenario wires the extraction steps.
func InitializeExtractScenario(ctx *godog.ScenarioContext) {
	state := &extractScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^the document text:$`, state.givenDocumentText)
	ctx.Step(`^I extract the questions$`, state.whenIExtract)
	ctx.Step(`^(\d+) candidate blocks are found$`, state.thenTotalBlocks)
	ctx.Step(`^(\d+) questions are extracted$`, state.thenQuestionCount)
	ctx.Step(`^question (\d+) has text "([^"]*)"$`, state.thenQuestionText)
	ctx.Step(`^question (\d+) has correct option "([^"]*)"$`, state.thenCorrectOption)
	ctx.Step(`^question (\d+) has explanation "([^"]*)"$`, state.thenExplanation)
	ctx.Step(`^question (\d+) has no explanation$`, state.thenNoExplanation)
	ctx.Step(`^block (\d+) is skipped because "([^"]*)"$`, state.thenBlockSkipped)
}

type extractScenarioState struct {
	text   string
	result *Result
}

func (s *extractScenarioState) reset() {
	s.text = ""
	s.result = nil
}

func (s *extractScenarioState) givenDocumentText(doc *godog.DocString) error {
	s.text = doc.Content
	return nil
}

func (s *extractScenarioState) whenIExtract() error {
	res := Extract(s.text)
	s.result = &res
	return nil
}

func (s *extractScenarioState) question(n int) (*ParsedQuestion, error) {
	if s.result == nil {
		return nil, fmt.Errorf("extraction has not run")
	}
	if n < 1 || n > len(s.result.Questions) {
		return nil, fmt.Errorf("question %d not found, have %d", n, len(s.result.Questions))
	}
	return &s.result.Questions[n-1], nil
}

func (s *extractScenarioState) thenTotalBlocks(expected int) error {
	if s.result.TotalBlocks != expected {
		return fmt.Errorf("expected %d blocks, got %d", expected, s.result.TotalBlocks)
	}
	return nil
}

func (s *extractScenarioState) thenQuestionCount(expected int) error {
	if len(s.result.Questions) != expected {
		return fmt.Errorf("expected %d questions, got %d", expected, len(s.result.Questions))
	}
	return nil
}

func (s *extractScenarioState) thenQuestionText(n int, expected string) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if q.QuestionText != expected {
		return fmt.Errorf("expected text %q, got %q", expected, q.QuestionText)
	}
	return nil
}

func (s *extractScenarioState) thenCorrectOption(n int, expected string) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if got := q.Options[q.CorrectOptionIndex]; got != expected {
		return fmt.Errorf("expected correct option %q, got %q", expected, got)
	}
	return nil
}

func (s *extractScenarioState) thenExplanation(n int, expected string) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if q.Explanation == nil || *q.Explanation != expected {
		return fmt.Errorf("expected explanation %q, got %v", expected, q.Explanation)
	}
	return nil
}

func (s *extractScenarioState) thenNoExplanation(n int) error {
	q, err := s.question(n)
	if err != nil {
		return err
	}
	if q.Explanation != nil {
		return fmt.Errorf("expected no explanation, got %q", *q.Explanation)
	}
	return nil
}

func (s *extractScenarioState) thenBlockSkipped(index int, reason string) error {
	for _, b := range s.result.Skipped {
		if b.Index == index {
			if string(b.Reason) != reason {
				return fmt.Errorf("block %d skipped for %q, expected %q", index, b.Reason, reason)
			}
			return nil
		}
	}
	return fmt.Errorf("block %d was not skipped", index)
}
