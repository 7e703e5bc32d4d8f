package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/preplab/catprep/internal/domain"
)

// CompletionClient defines the interface for free-text LLM completions
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RefusalPhrase is the exact reply the prompt demands when the retrieved
// context does not support an answer. The generator passes it through
// verbatim instead of fabricating a citation.
const RefusalPhrase = "I don't know."

const answerSystemPrompt = `You are an expert tutor for competitive exam preparation.
Answer the student's question using ONLY the numbered context passages provided.
Cite every claim with the passage number in square brackets, e.g. [1] or [2].
If none of the passages support an answer, reply with exactly: I don't know.
Do not invent sources or cite passages that were not provided.`

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// AnswerService produces grounded answers over retrieved chunks.
type AnswerService struct {
	llm     CompletionClient
	timeout time.Duration
}

func NewAnswerService(llm CompletionClient, timeout time.Duration) *AnswerService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnswerService{llm: llm, timeout: timeout}
}

// Answer generates a cited answer for the query from the given context
// chunks. Citations reference only supplied chunks; a refusal comes back
// verbatim with no citations. Generation failures surface as errors, never
// as partial or fabricated content.
func (s *AnswerService) Answer(ctx context.Context, query string, chunks []*domain.ScoredChunk) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyInput
	}
	if len(chunks) == 0 {
		return &domain.Answer{Text: RefusalPhrase, Refusal: true}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Complete(callCtx, answerSystemPrompt, buildAnswerPrompt(query, chunks))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTimeout, "external service call timed out", err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "answer generation failed", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrAnswerService
	}

	if isRefusal(text) {
		return &domain.Answer{Text: text, Refusal: true}, nil
	}

	return &domain.Answer{
		Text:      text,
		Citations: parseCitations(text, chunks),
	}, nil
}

func buildAnswerPrompt(query string, chunks []*domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context passages:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, c.Chunk.Content)
	}
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}

func isRefusal(text string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(text), "."))
	return normalized == strings.ToLower(strings.TrimRight(RefusalPhrase, "."))
}

// parseCitations keeps only bracket references that resolve to a supplied
// chunk, preserving first-mention order without duplicates.
func parseCitations(text string, chunks []*domain.ScoredChunk) []domain.Citation {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(matches))
	citations := make([]domain.Citation, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(chunks) {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}

		chunk := chunks[n-1].Chunk
		citations = append(citations, domain.Citation{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Seq:        chunk.Seq,
		})
	}
	return citations
}
