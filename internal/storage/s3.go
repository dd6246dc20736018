package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/suenchunyu/word-frequency/internal/config"
)

const contentType = "text/plain; charset=utf-8"

// S3 keeps objects in one bucket of an S3 compatible service.
type S3 struct {
	client *minio.Client
	bucket string
}

func NewS3(c config.Storage, bucket string) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}

	client, err := minio.New(c.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.AccessSecret, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *S3) Bucket() string {
	return s.bucket
}

func (s *S3) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" {
		return nil, fmt.Errorf("%w %q", ErrInvalidName, name)
	}

	object, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(name, err)
	}

	// GetObject is lazy, Stat surfaces a missing object before reading.
	if _, err = object.Stat(); err != nil {
		_ = object.Close()
		return nil, s.wrap(name, err)
	}
	return object, nil
}

func (s *S3) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if name == "" {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}

	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return s.wrap(name, err)
	}
	return nil
}

func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	names := make([]string, 0)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, s.wrap(prefix, object.Err)
		}
		names = append(names, object.Key)
	}

	sort.Strings(names)
	return names, nil
}

func (s *S3) wrap(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s/%s", ErrNotFound, s.bucket, name)
	default:
		return fmt.Errorf("s3 %s/%s: %w", s.bucket, name, err)
	}
}
