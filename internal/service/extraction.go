package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/preplab/catprep/internal/domain"
)

// JSONCompletionClient defines the interface for JSON-constrained completions
type JSONCompletionClient interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

const extractionSystemPrompt = `You extract multiple-choice practice questions from study material for competitive exam preparation.
Given a passage, return every self-contained question it supports as a JSON object of the form:
{"questions": [{"topic": "...", "text": "...", "options": ["...", "..."], "correct_index": 0, "explanation": "...", "raw_signal": 3.0}]}
Rules:
- topic is a short subject label such as "Arithmetic", "Algebra", "Geometry" or "Percentages".
- options has between 2 and 6 entries and correct_index points at the right one.
- raw_signal is your own difficulty estimate from 1 (trivial) to 5 (very hard).
- Only produce questions the passage actually answers. Return {"questions": []} when none exist.`

const extractionSchemaJSON = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["topic", "text", "options", "correct_index"],
        "properties": {
          "topic": {"type": "string"},
          "text": {"type": "string"},
          "options": {"type": "array", "items": {"type": "string"}},
          "correct_index": {"type": "integer"},
          "explanation": {"type": "string"},
          "raw_signal": {"type": "number"}
        }
      }
    }
  }
}`

var (
	extractionSchemaOnce sync.Once
	extractionSchema     *jsonschema.Schema
	extractionSchemaErr  error
)

// compiledExtractionSchema compiles the response schema once per process.
func compiledExtractionSchema() (*jsonschema.Schema, error) {
	extractionSchemaOnce.Do(func() {
		var parsed any
		if err := json.Unmarshal([]byte(extractionSchemaJSON), &parsed); err != nil {
			extractionSchemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const schemaURL = "schema://extraction.json"
		if err := c.AddResource(schemaURL, parsed); err != nil {
			extractionSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		extractionSchema, extractionSchemaErr = c.Compile(schemaURL)
	})
	return extractionSchema, extractionSchemaErr
}

type extractedQuestion struct {
	Topic        string   `json:"topic"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	RawSignal    float64  `json:"raw_signal"`
}

type extractionResponse struct {
	Questions []extractedQuestion `json:"questions"`
}

// ExtractorConfig sizes the sliding text windows sent to the model.
type ExtractorConfig struct {
	WindowWords  int
	OverlapWords int
	CallTimeout  time.Duration
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		WindowWords:  600,
		OverlapWords: 80,
		CallTimeout:  30 * time.Second,
	}
}

// Extractor turns raw document text into scored candidate questions. The
// document is processed in overlapping windows so questions spanning a chunk
// boundary are still seen in one piece.
type Extractor struct {
	llm    JSONCompletionClient
	scorer *DifficultyScorer
	cfg    ExtractorConfig
	now    func() time.Time
}

func NewExtractor(llm JSONCompletionClient, scorer *DifficultyScorer, cfg ExtractorConfig) *Extractor {
	if cfg.WindowWords <= 0 {
		cfg = DefaultExtractorConfig()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Extractor{llm: llm, scorer: scorer, cfg: cfg, now: time.Now}
}

// Extract produces validated, difficulty-scored questions for the document.
// Malformed individual candidates are dropped; a window whose whole response
// fails validation gets one retry before being skipped. Transport failures
// abort the extraction.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]*domain.Question, error) {
	if doc == nil {
		return nil, domain.ErrEmptyInput
	}

	windows, err := ChunkWords(doc.Text, ChunkConfig{MaxWords: e.cfg.WindowWords, OverlapWords: e.cfg.OverlapWords})
	if err != nil {
		return nil, err
	}

	var questions []*domain.Question
	for _, window := range windows {
		resp, err := e.extractWindow(ctx, window)
		if err != nil {
			var malformed *malformedResponseError
			if errors.As(err, &malformed) {
				continue
			}
			return nil, err
		}

		for _, cand := range resp.Questions {
			q := &domain.Question{
				ID:           uuid.NewString(),
				DocumentID:   doc.ID,
				Topic:        cand.Topic,
				Text:         cand.Text,
				Options:      cand.Options,
				CorrectIndex: cand.CorrectIndex,
				Explanation:  cand.Explanation,
				RawSignal:    cand.RawSignal,
				CreatedAt:    e.now(),
			}
			if err := domain.ValidateQuestion(q); err != nil {
				continue
			}
			q.Difficulty = e.scorer.Score(q)
			q.EstimatedSeconds = estimatedSeconds(q.Difficulty)
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// extractWindow calls the model for one window, retrying once when the
// response fails schema validation.
func (e *Extractor) extractWindow(ctx context.Context, window string) (*extractionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		raw, err := e.llm.CompleteJSON(callCtx, extractionSystemPrompt, window)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTimeout, "external service call timed out", err)
			}
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "question extraction service failed", err)
		}

		resp, err := parseExtractionResponse(raw)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// malformedResponseError marks a response that parsed or validated badly.
// It is recoverable per window, unlike a transport failure.
type malformedResponseError struct {
	err error
}

func (e *malformedResponseError) Error() string {
	return fmt.Sprintf("malformed extraction response: %v", e.err)
}

func (e *malformedResponseError) Unwrap() error { return e.err }

func parseExtractionResponse(raw string) (*extractionResponse, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &malformedResponseError{err: err}
	}

	schema, err := compiledExtractionSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, &malformedResponseError{err: err}
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &malformedResponseError{err: err}
	}
	return &resp, nil
}

// estimatedSeconds maps a difficulty bucket to a suggested solving time.
func estimatedSeconds(difficulty int) int {
	return 30 + difficulty*15
}
