package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/preplab/catprep/internal/domain"
	"github.com/preplab/catprep/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error
}

// PipelineJobRepositoryInterface defines the repository interface for pipeline job persistence
type PipelineJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.PipelineJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestService accepts study material and queues it for pipeline processing.
// The document is stored immediately in the pending state; chunking, embedding
// and question extraction happen asynchronously in the worker.
type IngestService struct {
	documents DocumentRepositoryInterface
	jobs      PipelineJobRepositoryInterface
	txRunner  TxRunner
	uuidGen   UUIDGenerator
}

// NewIngestService creates a new IngestService instance
func NewIngestService(documents DocumentRepositoryInterface, jobs PipelineJobRepositoryInterface) *IngestService {
	return &IngestService{
		documents: documents,
		jobs:      jobs,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewIngestServiceWithUUIDGen creates a new IngestService with custom UUID generator (for testing)
func NewIngestServiceWithUUIDGen(documents DocumentRepositoryInterface, jobs PipelineJobRepositoryInterface, uuidGen UUIDGenerator) *IngestService {
	return &IngestService{
		documents: documents,
		jobs:      jobs,
		uuidGen:   uuidGen,
	}
}

// NewIngestServiceWithTx creates an IngestService that writes the document
// and its pipeline job in one transaction.
func NewIngestServiceWithTx(documents DocumentRepositoryInterface, jobs PipelineJobRepositoryInterface, txRunner TxRunner) *IngestService {
	return &IngestService{
		documents: documents,
		jobs:      jobs,
		txRunner:  txRunner,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// IngestInput represents the input for ingesting a document
type IngestInput struct {
	Filename  string
	Text      string
	PageCount int
}

// Ingest stores a new document and queues a pipeline job for it.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), input.Filename, input.Text, input.PageCount, now)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	job := domain.NewPipelineJob(s.uuidGen.NewString(), doc.ID, now)

	if s.txRunner != nil {
		err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return err
			}
			return repos.PipelineJobs().Create(ctx, job)
		})
		if err != nil {
			return nil, err
		}
		return doc, nil
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	return doc, nil
}

// GetDocument retrieves a document by ID
func (s *IngestService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.GetDocument", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "get",
	})
	defer span.End()

	return s.documents.GetByID(ctx, id)
}

// ListDocuments retrieves all ingested documents
func (s *IngestService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	return s.documents.List(ctx)
}
