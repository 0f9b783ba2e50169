package domain

import "fmt"

// ValidationError describes a single rejected input record. It is recorded
// and skipped, never fatal to a batch.
type ValidationError struct {
	Kind   EventKind
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record at index %d: %s", e.Kind, e.Index, e.Reason)
}

// ConnectionError is returned when a backing store cannot be reached at
// startup.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IngestionError is returned when an event batch could not be written. The
// batch has been rolled back.
type IngestionError struct {
	Kind  EventKind
	Count int
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("failed to ingest %d %s events: %v", e.Count, e.Kind, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// AlertWriteError is returned when an alert batch could not be written. The
// batch has been rolled back.
type AlertWriteError struct {
	Count int
	Err   error
}

func (e *AlertWriteError) Error() string {
	return fmt.Sprintf("failed to write %d alerts: %v", e.Count, e.Err)
}

func (e *AlertWriteError) Unwrap() error { return e.Err }

// ExtractionError is returned when the detection window could not be read.
type ExtractionError struct {
	Kind EventKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s window: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CachePublishError describes a failed cache write. It is logged and
// swallowed; the cache is not a source of truth.
type CachePublishError struct {
	Op  string
	Key string
	Err error
}

func (e *CachePublishError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CachePublishError) Unwrap() error { return e.Err }
