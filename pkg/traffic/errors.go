package traffic

import "fmt"

// StorageError represents a failed sink write.
type StorageError struct {
	Backend   string // Sink backend ("file", "redis", "gcs", ...)
	Operation string // Operation that failed ("store", "ping", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// PublishError represents a failed message dispatch.
type PublishError struct {
	Dispatcher string // Dispatcher name ("kafka", "mqtt", ...)
	Topic      string // Destination topic
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error [dispatcher=%s, topic=%s]: %v", e.Dispatcher, e.Topic, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PublishError) Unwrap() error {
	return e.Cause
}

// NewPublishError creates a new PublishError.
func NewPublishError(dispatcher, topic string, cause error) *PublishError {
	return &PublishError{
		Dispatcher: dispatcher,
		Topic:      topic,
		Cause:      cause,
	}
}

// RecordError represents a failure while recording a captured exchange.
type RecordError struct {
	RecordID string // Record identifier
	Stage    string // "encode", "store", "publish", "panic"
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("record error [record_id=%s, stage=%s]: %v", e.RecordID, e.Stage, e.Cause)
	}
	return fmt.Sprintf("record error [stage=%s]: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecordError) Unwrap() error {
	return e.Cause
}

// NewRecordError creates a new RecordError.
func NewRecordError(recordID, stage string, cause error) *RecordError {
	return &RecordError{
		RecordID: recordID,
		Stage:    stage,
		Cause:    cause,
	}
}

// ExportError represents a failure while exporting stored dumps.
type ExportError struct {
	Format      string // Export format ("json", "csv")
	RecordCount int    // Number of records written before the failure
	Cause       error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{
		Format:      format,
		RecordCount: recordCount,
		Cause:       cause,
	}
}
