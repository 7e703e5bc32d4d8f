package domain

import (
	"fmt"
	"time"
)

// MockTest is a fixed, pre-composed set of questions scored as one assessment.
// Created at start, finalized exactly once at submission.
type MockTest struct {
	ID          string
	QuestionIDs []string
	Answers     map[string]int // question ID -> learner answer index
	StartedAt   time.Time
	SubmittedAt *time.Time
	Report      *ScoreReport
}

// TopicScore is the per-topic slice of a score report.
type TopicScore struct {
	Total   int
	Correct int
	Percent float64
}

// ScoreReport summarizes a submitted mock test.
type ScoreReport struct {
	Total    int
	Correct  int
	Percent  float64
	PerTopic map[string]TopicScore
}

// NewMockTest creates a started MockTest over the given question IDs.
func NewMockTest(id string, questionIDs []string, startedAt time.Time) *MockTest {
	return &MockTest{
		ID:          id,
		QuestionIDs: questionIDs,
		Answers:     make(map[string]int),
		StartedAt:   startedAt,
	}
}

// Submitted reports whether the test has been finalized.
func (t *MockTest) Submitted() bool {
	return t.SubmittedAt != nil
}

// Finalize records the answers and report. Finalization is one-way:
// a submitted test cannot be re-opened or re-submitted.
func (t *MockTest) Finalize(answers map[string]int, report *ScoreReport, submittedAt time.Time) error {
	if t.Submitted() {
		return ErrTestAlreadySubmitted
	}
	if report == nil {
		return fmt.Errorf("score report cannot be nil")
	}

	t.Answers = answers
	t.Report = report
	t.SubmittedAt = &submittedAt
	return nil
}
