package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by storage.driver.
const (
	DriverS3    = "s3"
	DriverGCS   = "gcs"
	DriverMinIO = "minio"
)

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	ErrNoDriver      = errors.New("storage: no driver configured")
)

// FactoryOptions carries the settings of every backend; only the one matching
// the driver is read.
type FactoryOptions struct {
	S3    S3Options
	GCS   GCSOptions
	MinIO MinIOOptions
}

type constructor func(ctx context.Context, opts FactoryOptions) (Storage, error)

var drivers = map[string]constructor{
	DriverS3: func(ctx context.Context, o FactoryOptions) (Storage, error) {
		return NewS3(ctx, o.S3)
	},
	DriverGCS: func(ctx context.Context, o FactoryOptions) (Storage, error) {
		return NewGCS(ctx, o.GCS)
	},
	DriverMinIO: func(_ context.Context, o FactoryOptions) (Storage, error) {
		return NewMinIO(o.MinIO)
	},
}

// NewFromDriver opens the backend named by driver, case-insensitively. An
// empty name yields ErrNoDriver so the document record store can be left out.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "" {
		return nil, ErrNoDriver
	}

	build, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	return build(ctx, opts)
}
