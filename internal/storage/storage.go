package storage

import (
	"context"
	"errors"
	"io"

	"github.com/suenchunyu/word-frequency/internal/config"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidName = errors.New("invalid object name")
)

// Store reads job inputs and keeps job results.
type Store interface {
	// Get opens the named object, the caller closes it.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// Put stores size bytes of r under name, replacing any previous object.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// List returns the names starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open returns the store inputs are read from and the store results are
// written to.
func Open(c config.Storage) (tasks Store, results Store, err error) {
	kind, err := config.StorageKind(c.Kind)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case "local":
		l := NewLocal(c.Root)
		return l, l, nil
	case "s3":
		tasks, err = NewS3(c, c.TaskBucket)
		if err != nil {
			return nil, nil, err
		}
		results, err = NewS3(c, c.ResultBucket)
		if err != nil {
			return nil, nil, err
		}
	}
	return tasks, results, nil
}
