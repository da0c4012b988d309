// Package storage provides a small object store used for per-account
// documents. Objects are read and written whole.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrObjectNotFound = errors.New("storage: object not found")
	ErrBucketRequired = errors.New("storage: bucket is required")
	ErrKeyRequired    = errors.New("storage: key is required")
)

// Storage reads and writes whole objects. GetObject reports a missing key as
// ErrObjectNotFound; DeleteObject treats it as success.
type Storage interface {
	io.Closer

	PutObject(ctx context.Context, bucket, key string, body []byte, opts PutOptions) (ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
	UpdatedAt   time.Time
}

// location names one object of one backend, for checks and error wrapping.
type location struct {
	backend string
	bucket  string
	key     string
}

func (l location) check() error {
	switch {
	case l.bucket == "":
		return ErrBucketRequired
	case l.key == "":
		return ErrKeyRequired
	}
	return nil
}

func (l location) wrap(op string, err error) error {
	return fmt.Errorf("storage: %s %s %s/%s: %w", l.backend, op, l.bucket, l.key, err)
}

func (l location) info(body []byte, opts PutOptions) ObjectInfo {
	return ObjectInfo{
		Bucket:      l.bucket,
		Key:         l.key,
		Size:        int64(len(body)),
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}
}
