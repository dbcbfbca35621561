// Package huberrors provides sentinel and custom error types for the application.
package huberrors

// ErrConnection represents a database connection failure.
// Use when the database is unreachable or rejects the supplied credentials.
var ErrConnection = &ConnectionError{}

// ConnectionError is a sentinel error for database connection failures.
type ConnectionError struct {
	Message string
}

// NewConnectionError creates a ConnectionError with a custom message.
func NewConnectionError(message string) *ConnectionError {
	return &ConnectionError{Message: message}
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "database connection failed"
}

// Is implements the error interface for error comparison.
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)

	return ok
}

// ErrExtraction represents a vision extraction failure.
// Use when the provider call errors or returns unusable (e.g. empty) content.
var ErrExtraction = &ExtractionError{}

// ExtractionError is a sentinel error for failed vision extraction calls.
type ExtractionError struct {
	Source  string
	Message string
}

// NewExtractionError creates an ExtractionError with a custom message.
func NewExtractionError(source, message string) *ExtractionError {
	return &ExtractionError{
		Source:  source,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Source != "" {
		return "extraction failed for " + e.Source
	}

	return "extraction failed"
}

// Is implements the error interface for error comparison.
func (e *ExtractionError) Is(target error) bool {
	_, ok := target.(*ExtractionError)

	return ok
}

// ErrMalformedResponse is the sentinel for structuring-model output that is not
// parseable as JSON even after repair.
var ErrMalformedResponse = &MalformedResponseError{}

// MalformedResponseError carries the raw model content for diagnostics.
type MalformedResponseError struct {
	Content string
}

// NewMalformedResponseError creates a MalformedResponseError carrying the raw content.
func NewMalformedResponseError(content string) *MalformedResponseError {
	return &MalformedResponseError{Content: content}
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Content != "" {
		return "malformed structuring response: " + e.Content
	}

	return "malformed structuring response"
}

// Is implements the error interface for error comparison.
func (e *MalformedResponseError) Is(target error) bool {
	_, ok := target.(*MalformedResponseError)

	return ok
}

// ErrEmbedding represents an embedding failure: a missing provider credential or
// a response that cannot be interpreted as a numeric vector.
var ErrEmbedding = &EmbeddingError{}

// EmbeddingError is a sentinel error for embedding provider failures.
type EmbeddingError struct {
	Message string
}

// NewEmbeddingError creates an EmbeddingError with a custom message.
func NewEmbeddingError(message string) *EmbeddingError {
	return &EmbeddingError{Message: message}
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "embedding failed"
}

// Is implements the error interface for error comparison.
func (e *EmbeddingError) Is(target error) bool {
	_, ok := target.(*EmbeddingError)

	return ok
}
