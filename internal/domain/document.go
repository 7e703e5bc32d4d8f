package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents ingested study material. Immutable once stored;
// only Status moves as the pipeline progresses.
type Document struct {
	ID         string
	Filename   string
	Text       string
	PageCount  int
	Status     DocumentStatus
	ChunkCount int
	Error      string
	CreatedAt  time.Time
}

// NewDocument creates a new Document instance in the pending state.
func NewDocument(id, filename, text string, pageCount int, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		Filename:  filename,
		Text:      text,
		PageCount: pageCount,
		Status:    DocumentStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if strings.TrimSpace(d.Text) == "" {
		return ErrEmptyInput
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
