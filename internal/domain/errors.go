package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so sentinels wrapped via NewDomainErrorWithCause still match with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout       = "SERVICE_TIMEOUT"
	ErrCodeInvalidState  = "INVALID_STATE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Input errors: the caller's fault, never retried
var (
	ErrEmptyInput       = NewDomainError(ErrCodeValidation, "input text is empty")
	ErrInvalidChunkSpec = NewDomainError(ErrCodeValidation, "invalid chunk size or overlap")
	ErrInvalidAnswer    = NewDomainError(ErrCodeValidation, "answer index out of range")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrQuestionNotFound = NewDomainError(ErrCodeNotFound, "question not found")
	ErrTestNotFound     = NewDomainError(ErrCodeNotFound, "mock test not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "practice session not found")
)

// Service errors: an external boundary failed, retryable by the caller
var (
	ErrEmbeddingService     = NewDomainError(ErrCodeUnavailable, "embedding service failed")
	ErrIndexService         = NewDomainError(ErrCodeUnavailable, "vector index failed")
	ErrExtractionService    = NewDomainError(ErrCodeUnavailable, "question extraction service failed")
	ErrRetrievalUnavailable = NewDomainError(ErrCodeUnavailable, "retrieval unavailable")
	ErrAnswerService        = NewDomainError(ErrCodeUnavailable, "answer generation failed")
	ErrServiceTimeout       = NewDomainError(ErrCodeTimeout, "external service call timed out")
)

// State errors: invalid transition, fatal to the operation but not the process
var (
	ErrNoCandidateAvailable  = NewDomainError(ErrCodeInvalidState, "no candidate question available")
	ErrInsufficientQuestions = NewDomainError(ErrCodeInvalidState, "not enough questions to compose a test")
	ErrTestAlreadySubmitted  = NewDomainError(ErrCodeInvalidState, "mock test has already been submitted")
)
