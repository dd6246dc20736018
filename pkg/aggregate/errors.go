package aggregate

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRecord = errors.New("invalid record")
)

// InvalidRecordError reports a record rejected during ingestion. Position
// is the zero-based index of the record in the input sequence.
type InvalidRecordError struct {
	Position int
	Key      string
	Value    interface{}
	Reason   string
	Err      error
}

func (e *InvalidRecordError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("%s at position %d (key %q, value %v): %s", ErrInvalidRecord, e.Position, e.Key, e.Value, reason)
}

func (e *InvalidRecordError) Unwrap() error {
	return e.Err
}

func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}
