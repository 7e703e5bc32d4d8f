package domain

import (
	"fmt"
	"time"
)

// Attempt records one response to a question. Append-only; never mutated.
// Correct is derived at creation: answer index == the question's correct index.
type Attempt struct {
	ID          string
	QuestionID  string
	TestID      string // set when the attempt belongs to a mock test
	AnswerIndex int
	Correct     bool
	Seconds     int
	CreatedAt   time.Time
}

// NewAttempt creates an Attempt for an answer to the given question,
// deriving correctness.
func NewAttempt(id string, q *Question, answerIndex, seconds int, createdAt time.Time) (*Attempt, error) {
	if q == nil {
		return nil, fmt.Errorf("question cannot be nil")
	}
	if answerIndex < 0 || answerIndex >= len(q.Options) {
		return nil, ErrInvalidAnswer
	}
	if seconds < 0 {
		seconds = 0
	}

	return &Attempt{
		ID:          id,
		QuestionID:  q.ID,
		AnswerIndex: answerIndex,
		Correct:     answerIndex == q.CorrectIndex,
		Seconds:     seconds,
		CreatedAt:   createdAt,
	}, nil
}
