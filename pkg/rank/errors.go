package rank

import (
	"errors"
	"fmt"
)

var (
	ErrRekey    = errors.New("rekey failed")
	ErrOverflow = errors.New("sort key overflow")
	ErrNegative = errors.New("negative count cannot be padded")
)

// RekeyError reports the entry whose rekey call failed or panicked.
type RekeyError struct {
	Key       string
	Aggregate interface{}
	Err       error
}

func (e *RekeyError) Error() string {
	return fmt.Sprintf("%s for key %q (aggregate %v): %v", ErrRekey, e.Key, e.Aggregate, e.Err)
}

func (e *RekeyError) Unwrap() error {
	return e.Err
}

func (e *RekeyError) Is(target error) bool {
	return target == ErrRekey
}

// OverflowError reports a count that needs more digits than the fixed
// sort key width allows.
type OverflowError struct {
	Key   string
	Value int64
	Width int
}

func (e *OverflowError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %d needs %d digits, width is %d", ErrOverflow, e.Value, Digits(e.Value), e.Width)
	}
	return fmt.Sprintf("%s: count %d of key %q needs %d digits, width is %d", ErrOverflow, e.Value, e.Key, Digits(e.Value), e.Width)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}
