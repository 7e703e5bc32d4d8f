package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinOptions is the smallest allowed answer option count
	MinOptions = 2
	// MaxOptions is the largest allowed answer option count
	MaxOptions = 6

	// MinDifficulty and MaxDifficulty bound the normalized difficulty scale
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Question is a practice question extracted from study material.
// Immutable after creation; attempt statistics are derived elsewhere.
type Question struct {
	ID           string
	DocumentID   string
	Topic        string
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
	// RawSignal is the extractor's unnormalized difficulty estimate.
	RawSignal float64
	// Difficulty is the normalized 1-5 score computed by the scorer.
	Difficulty       int
	EstimatedSeconds int
	CreatedAt        time.Time
}

// NewQuestion creates a new Question instance
func NewQuestion(id, documentID, topic, text string, options []string, correctIndex int, createdAt time.Time) *Question {
	return &Question{
		ID:           id,
		DocumentID:   documentID,
		Topic:        topic,
		Text:         text,
		Options:      options,
		CorrectIndex: correctIndex,
		CreatedAt:    createdAt,
	}
}

// ValidateQuestion validates a Question instance. Candidates from the
// extractor that fail here are dropped before entering the question bank.
func ValidateQuestion(q *Question) error {
	if q == nil {
		return fmt.Errorf("question cannot be nil")
	}

	if q.ID == "" {
		return fmt.Errorf("question ID is required")
	}

	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question Text is required")
	}

	if strings.TrimSpace(q.Topic) == "" {
		return fmt.Errorf("question Topic is required")
	}

	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return fmt.Errorf("question must have between %d and %d options, got %d", MinOptions, MaxOptions, len(q.Options))
	}

	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("question option %d is empty", i)
		}
	}

	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("question CorrectIndex %d out of range for %d options", q.CorrectIndex, len(q.Options))
	}

	if q.Difficulty != 0 && (q.Difficulty < MinDifficulty || q.Difficulty > MaxDifficulty) {
		return fmt.Errorf("question Difficulty %d outside [%d,%d]", q.Difficulty, MinDifficulty, MaxDifficulty)
	}

	return nil
}
