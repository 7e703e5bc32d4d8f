package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/preplab/catprep/internal/domain"
)

// MaxRetries is how many times a document's pipeline run is attempted before
// the document is marked failed.
const MaxRetries = 3

const defaultPollInterval = 5 * time.Second

// PipelineJobRepository defines the interface for pipeline job persistence
type PipelineJobRepository interface {
	// GetPendingJobs retrieves and claims pending pipeline jobs
	GetPendingJobs(ctx context.Context) ([]*domain.PipelineJob, error)

	// UpdateJobStatus updates the status of a pipeline job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.PipelineJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// DocumentStatusUpdater marks a document failed when its job runs out of retries
type DocumentStatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error
}

// DocumentPipeline defines the interface for running the ingestion pipeline
type DocumentPipeline interface {
	ProcessDocument(ctx context.Context, documentID string) error
}

// PipelineWorker drains the pipeline job queue, running the full ingestion
// pipeline (chunk, embed, extract questions) for each claimed document. One
// worker polls per process; concurrent replicas are safe because the
// repository claims jobs with row locks.
type PipelineWorker struct {
	repo         PipelineJobRepository
	pipeline     DocumentPipeline
	documents    DocumentStatusUpdater
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewPipelineWorker creates a worker polling at the given interval.
func NewPipelineWorker(repo PipelineJobRepository, pipeline DocumentPipeline, documents DocumentStatusUpdater, pollInterval time.Duration) *PipelineWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &PipelineWorker{
		repo:         repo,
		pipeline:     pipeline,
		documents:    documents,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Run polls the queue until the context is cancelled or Stop is called.
// Poll failures are logged and the next tick retries; Run never returns an
// error.
func (w *PipelineWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("pipeline worker polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("pipeline worker exiting: context cancelled")
			return
		case <-w.stopChan:
			log.Println("pipeline worker exiting: stop requested")
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				log.Printf("pipeline poll failed: %v", err)
			}
		}
	}
}

// Stop signals Run to exit and blocks until the in-flight poll finishes.
// Call only after Run has been started.
func (w *PipelineWorker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("pipeline worker shut down")
}

// ProcessPending claims every pending job and runs the pipeline for its
// document. Run calls this once per tick; tests and batch tooling call it
// directly to drain the queue synchronously. A failed document never aborts
// the batch.
func (w *PipelineWorker) ProcessPending(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("claim pending pipeline jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	for i, job := range jobs {
		log.Printf("document %s: pipeline starting (%d/%d in batch, attempt %d)",
			job.DocumentID, i+1, len(jobs), job.Retries+1)
		if err := w.runJob(ctx, job); err != nil {
			log.Printf("document %s: %v", job.DocumentID, err)
		}
	}

	return nil
}

func (w *PipelineWorker) runJob(ctx context.Context, job *domain.PipelineJob) error {
	if err := w.pipeline.ProcessDocument(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.PipelineJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("mark job %s completed: %w", job.ID, err)
	}

	log.Printf("document %s: pipeline completed", job.DocumentID)
	return nil
}

// handleJobFailure requeues a failed job, or after MaxRetries marks both the
// job and its document failed so the API reports a terminal state instead of
// a document stuck in processing.
func (w *PipelineWorker) handleJobFailure(ctx context.Context, job *domain.PipelineJob, jobErr error) error {
	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("increment retries for job %s: %w", job.ID, err)
	}

	if job.Retries+1 >= MaxRetries {
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.PipelineJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("mark job %s failed: %w", job.ID, err)
		}
		if err := w.documents.UpdateStatus(ctx, job.DocumentID, domain.DocumentStatusFailed, 0, errMsg); err != nil {
			return fmt.Errorf("mark document %s failed: %w", job.DocumentID, err)
		}
		return fmt.Errorf("pipeline gave up after %d attempts: %v", MaxRetries, jobErr)
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.PipelineJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("requeue job %s: %w", job.ID, err)
	}

	return fmt.Errorf("pipeline failed, requeued for attempt %d of %d: %v", job.Retries+2, MaxRetries, jobErr)
}
