package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/preplab/catprep/internal/domain"
)

type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) List(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error {
	args := m.Called(ctx, id, status, chunkCount, errMsg)
	return args.Error(0)
}

type MockPipelineJobRepo struct {
	mock.Mock
}

func (m *MockPipelineJobRepo) Create(ctx context.Context, job *domain.PipelineJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type stubUUIDGen struct {
	ids []string
	pos int
}

func (g *stubUUIDGen) NewString() string {
	id := g.ids[g.pos%len(g.ids)]
	g.pos++
	return id
}

func TestIngestService_Ingest(t *testing.T) {
	t.Run("stores document pending and queues a pipeline job", func(t *testing.T) {
		docs := new(MockDocumentRepo)
		jobs := new(MockPipelineJobRepo)
		gen := &stubUUIDGen{ids: []string{"doc-id", "job-id"}}

		docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
			return d.ID == "doc-id" && d.Status == domain.DocumentStatusPending && d.Filename == "notes.pdf"
		})).Return(nil)
		jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.PipelineJob) bool {
			return j.ID == "job-id" && j.DocumentID == "doc-id" && j.Status == domain.PipelineJobStatusPending
		})).Return(nil)

		svc := NewIngestServiceWithUUIDGen(docs, jobs, gen)
		doc, err := svc.Ingest(context.Background(), IngestInput{
			Filename:  "notes.pdf",
			Text:      "percentages express a part per hundred",
			PageCount: 3,
		})

		require.NoError(t, err)
		assert.Equal(t, "doc-id", doc.ID)
		assert.Equal(t, 3, doc.PageCount)
		docs.AssertExpectations(t)
		jobs.AssertExpectations(t)
	})

	t.Run("rejects blank text without touching repositories", func(t *testing.T) {
		docs := new(MockDocumentRepo)
		jobs := new(MockPipelineJobRepo)

		svc := NewIngestService(docs, jobs)
		_, err := svc.Ingest(context.Background(), IngestInput{Filename: "notes.pdf", Text: "   "})

		assert.ErrorIs(t, err, domain.ErrEmptyInput)
		docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("propagates repository failure", func(t *testing.T) {
		docs := new(MockDocumentRepo)
		jobs := new(MockPipelineJobRepo)
		docs.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

		svc := NewIngestService(docs, jobs)
		_, err := svc.Ingest(context.Background(), IngestInput{Filename: "notes.pdf", Text: "some text"})

		assert.ErrorIs(t, err, assert.AnError)
		jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("no job is queued when document creation fails", func(t *testing.T) {
		docs := new(MockDocumentRepo)
		jobs := new(MockPipelineJobRepo)
		docs.On("Create", mock.Anything, mock.Anything).Return(nil)
		jobs.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

		svc := NewIngestService(docs, jobs)
		_, err := svc.Ingest(context.Background(), IngestInput{Filename: "notes.pdf", Text: "some text"})

		assert.ErrorIs(t, err, assert.AnError)
	})
}

type fakeTxRunner struct {
	docs  DocumentRepositoryInterface
	jobs  PipelineJobRepositoryInterface
	calls int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	f.calls++
	return fn(f)
}

func (f *fakeTxRunner) Documents() DocumentRepositoryInterface      { return f.docs }
func (f *fakeTxRunner) PipelineJobs() PipelineJobRepositoryInterface { return f.jobs }

func TestIngestService_Ingest_Transactional(t *testing.T) {
	docs := new(MockDocumentRepo)
	jobs := new(MockPipelineJobRepo)
	runner := &fakeTxRunner{docs: docs, jobs: jobs}

	docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewIngestServiceWithTx(docs, jobs, runner)
	doc, err := svc.Ingest(context.Background(), IngestInput{Filename: "notes.pdf", Text: "some text"})

	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 1, runner.calls)
	docs.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestIngestService_GetDocument(t *testing.T) {
	docs := new(MockDocumentRepo)
	jobs := new(MockPipelineJobRepo)
	want := &domain.Document{ID: "doc-1", Filename: "notes.pdf", Status: domain.DocumentStatusReady}
	docs.On("GetByID", mock.Anything, "doc-1").Return(want, nil)
	docs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)

	svc := NewIngestService(docs, jobs)

	doc, err := svc.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, want, doc)

	_, err = svc.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
