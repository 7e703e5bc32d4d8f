package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/preplab/catprep/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearchRepository answers nearest-neighbor queries over chunk vectors.
type ChunkSearchRepository interface {
	SearchChunks(ctx context.Context, embedding []float32, limit int) ([]*domain.ScoredChunk, error)
}

// RetrieverConfig tunes retrieval.
type RetrieverConfig struct {
	TopK        int
	CallTimeout time.Duration
}

// DefaultRetrieverConfig provides sane retrieval defaults.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:        5,
		CallTimeout: 30 * time.Second,
	}
}

// Retriever embeds a query and looks up the most similar chunks. Read-only;
// an unreachable embedding service or index surfaces as a retrieval failure
// rather than being swallowed, since an ungrounded answer is worse than a
// visible error.
type Retriever struct {
	embedding EmbeddingClient
	chunks    ChunkSearchRepository
	cfg       RetrieverConfig
}

func NewRetriever(embedding EmbeddingClient, chunks ChunkSearchRepository, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrieverConfig().TopK
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultRetrieverConfig().CallTimeout
	}
	return &Retriever{
		embedding: embedding,
		chunks:    chunks,
		cfg:       cfg,
	}
}

// Retrieve returns at most topK chunks ordered by descending similarity.
// topK <= 0 falls back to the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]*domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyInput
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	embedding, err := r.embedding.GenerateEmbedding(embedCtx, query)
	if err != nil {
		return nil, retrievalError("embedding", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	results, err := r.chunks.SearchChunks(queryCtx, embedding, topK)
	if err != nil {
		return nil, retrievalError("vector index", err)
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// retrievalError classifies a failed boundary call: timeouts keep their own
// code so callers can distinguish a hang from an outage.
func retrievalError(boundary string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeTimeout, "external service call timed out", err)
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "retrieval unavailable", fmt.Errorf("%s: %w", boundary, err))
}
