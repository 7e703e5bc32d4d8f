package service

import (
	"context"
	"errors"
	"time"

	"github.com/preplab/catprep/internal/domain"
	"github.com/preplab/catprep/internal/telemetry"
)

// ChunkStoreRepository defines the repository interface for chunk upserts
type ChunkStoreRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error
}

// QuestionStoreRepository defines the repository interface for question persistence
type QuestionStoreRepository interface {
	CreateBatch(ctx context.Context, questions []*domain.Question) error
}

// QuestionExtractor defines the interface for extracting questions from a document
type QuestionExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]*domain.Question, error)
}

// PipelineService runs the full ingestion pipeline for one document:
// chunk, embed, index, extract questions, score, store. It is called by the
// background worker, never from a request handler.
type PipelineService struct {
	documents DocumentRepositoryInterface
	chunks    ChunkStoreRepository
	questions QuestionStoreRepository
	embedder  EmbeddingClient
	extractor QuestionExtractor
	chunkCfg  ChunkConfig
	timeout   time.Duration
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// NewPipelineService creates a new PipelineService instance
func NewPipelineService(
	documents DocumentRepositoryInterface,
	chunks ChunkStoreRepository,
	questions QuestionStoreRepository,
	embedder EmbeddingClient,
	extractor QuestionExtractor,
	chunkCfg ChunkConfig,
	timeout time.Duration,
) *PipelineService {
	if chunkCfg.MaxWords <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PipelineService{
		documents: documents,
		chunks:    chunks,
		questions: questions,
		embedder:  embedder,
		extractor: extractor,
		chunkCfg:  chunkCfg,
		timeout:   timeout,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       time.Now,
	}
}

// ProcessDocument runs the pipeline for the given document ID. On success the
// document ends in the ready state with its chunk count recorded. On failure
// the document is left for the worker's retry logic; this method never marks
// it failed itself.
func (s *PipelineService) ProcessDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "PipelineService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "pipeline",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""); err != nil {
		return err
	}

	chunks, err := s.buildChunks(ctx, doc)
	if err != nil {
		span.SetError(err)
		return err
	}

	if err := s.chunks.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		err = domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "vector index failed", err)
		span.SetError(err)
		return err
	}

	questions, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		span.SetError(err)
		return err
	}

	if len(questions) > 0 {
		if err := s.questions.CreateBatch(ctx, questions); err != nil {
			span.SetError(err)
			return err
		}
	}

	return s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusReady, len(chunks), "")
}

// buildChunks splits the document and embeds every chunk. Chunk order follows
// the document; Seq is the position in that order.
func (s *PipelineService) buildChunks(ctx context.Context, doc *domain.Document) ([]*domain.Chunk, error) {
	spans, err := ChunkWords(doc.Text, s.chunkCfg)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	chunks := make([]*domain.Chunk, 0, len(spans))
	for i, content := range spans {
		embedding, err := s.embedChunk(ctx, content)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, &domain.Chunk{
			ID:         s.uuidGen.NewString(),
			DocumentID: doc.ID,
			Seq:        i,
			Content:    content,
			WordCount:  wordCount(content),
			Embedding:  embedding,
			CreatedAt:  createdAt,
		})
	}
	return chunks, nil
}

func (s *PipelineService) embedChunk(ctx context.Context, content string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedding, err := s.embedder.GenerateEmbedding(callCtx, content)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTimeout, "external service call timed out", err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding service failed", err)
	}
	return embedding, nil
}
