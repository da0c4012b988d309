package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOOptions struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

// MinIOAdapter talks to MinIO or any S3 compatible server. The client is
// lazy: nothing is dialed until the first request.
type MinIOAdapter struct {
	client *minio.Client
}

func NewMinIO(opts MinIOOptions) (*MinIOAdapter, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client %s: %w", opts.Endpoint, err)
	}
	return NewMinIOWithClient(client), nil
}

func NewMinIOWithClient(client *minio.Client) *MinIOAdapter {
	return &MinIOAdapter{client: client}
}

func (m *MinIOAdapter) PutObject(ctx context.Context, bucket, key string, body []byte, opts PutOptions) (ObjectInfo, error) {
	loc := location{backend: "minio", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return ObjectInfo{}, err
	}

	up, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:    opts.ContentType,
		UserMetadata:   opts.Metadata,
		SendContentMd5: true,
	})
	if err != nil {
		return ObjectInfo{}, loc.wrap("put", err)
	}

	info := loc.info(body, opts)
	info.ETag = up.ETag
	return info, nil
}

// GetObject reads the body first; Stat is served from the response headers
// of that read.
func (m *MinIOAdapter) GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	loc := location{backend: "minio", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return nil, ObjectInfo{}, err
	}

	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, m.fail(loc, "get", err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, ObjectInfo{}, m.fail(loc, "read", err)
	}
	st, err := obj.Stat()
	if err != nil {
		return nil, ObjectInfo{}, m.fail(loc, "stat", err)
	}

	info := loc.info(body, PutOptions{ContentType: st.ContentType, Metadata: st.UserMetadata})
	info.ETag = st.ETag
	info.UpdatedAt = st.LastModified
	return body, info, nil
}

func (m *MinIOAdapter) DeleteObject(ctx context.Context, bucket, key string) error {
	loc := location{backend: "minio", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return err
	}

	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return m.fail(loc, "delete", err)
	}
	return nil
}

func (*MinIOAdapter) Close() error { return nil }

func (*MinIOAdapter) fail(loc location, op string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return loc.wrap(op, err)
}
