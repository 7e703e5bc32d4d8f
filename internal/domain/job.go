package domain

import (
	"fmt"
	"time"
)

// PipelineJobStatus represents the status of an ingestion pipeline job
type PipelineJobStatus string

const (
	PipelineJobStatusPending    PipelineJobStatus = "pending"
	PipelineJobStatusProcessing PipelineJobStatus = "processing"
	PipelineJobStatusCompleted  PipelineJobStatus = "completed"
	PipelineJobStatusFailed     PipelineJobStatus = "failed"
)

// PipelineJob represents an async document ingestion job. One job covers the
// full pipeline for a document: chunking, embedding, indexing and question
// extraction.
type PipelineJob struct {
	ID          string
	DocumentID  string
	Status      PipelineJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewPipelineJob creates a new PipelineJob instance in the pending state.
func NewPipelineJob(id, documentID string, createdAt time.Time) *PipelineJob {
	return &PipelineJob{
		ID:         id,
		DocumentID: documentID,
		Status:     PipelineJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidatePipelineJob validates a PipelineJob instance
func ValidatePipelineJob(j *PipelineJob) error {
	if j == nil {
		return fmt.Errorf("pipeline job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("pipeline job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("pipeline job DocumentID is required")
	}

	if !isValidPipelineJobStatus(j.Status) {
		return fmt.Errorf("pipeline job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("pipeline job Retries cannot be negative")
	}

	return nil
}

// isValidPipelineJobStatus checks if a PipelineJobStatus is valid
func isValidPipelineJobStatus(s PipelineJobStatus) bool {
	switch s {
	case PipelineJobStatusPending, PipelineJobStatusProcessing,
		PipelineJobStatusCompleted, PipelineJobStatusFailed:
		return true
	}
	return false
}
