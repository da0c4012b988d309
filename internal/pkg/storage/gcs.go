package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GCSOptions configures Google Cloud Storage. Credentials come from, in
// order, CredentialsJSON, CredentialsFile, then application default
// credentials. Endpoint with WithoutAuth targets an emulator.
type GCSOptions struct {
	CredentialsJSON []byte
	CredentialsFile string
	Endpoint        string
	WithoutAuth     bool

	// Client, when set, is used as is.
	Client *gcs.Client
}

func (o GCSOptions) clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	creds := o.CredentialsJSON
	if len(creds) == 0 && o.CredentialsFile != "" {
		raw, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("storage: gcs credentials file: %w", err)
		}
		creds = raw
	}

	switch {
	case o.WithoutAuth:
		opts = append(opts, option.WithoutAuthentication())
	case len(creds) > 0:
		c, err := google.CredentialsFromJSON(ctx, creds, gcs.ScopeReadWrite)
		if err != nil {
			return nil, fmt.Errorf("storage: gcs credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(c))
	}

	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint))
	}

	return opts, nil
}

type GCSAdapter struct {
	client *gcs.Client
}

func NewGCS(ctx context.Context, opts GCSOptions) (*GCSAdapter, error) {
	if opts.Client != nil {
		return &GCSAdapter{client: opts.Client}, nil
	}

	copts, err := opts.clientOptions(ctx)
	if err != nil {
		return nil, err
	}

	client, err := gcs.NewClient(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}
	return &GCSAdapter{client: client}, nil
}

func (g *GCSAdapter) PutObject(ctx context.Context, bucket, key string, body []byte, opts PutOptions) (ObjectInfo, error) {
	loc := location{backend: "gcs", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return ObjectInfo{}, err
	}

	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata
	// the document is small; one chunk avoids a resumable upload session
	w.ChunkSize = 0

	if _, err := w.Write(body); err != nil {
		return ObjectInfo{}, loc.wrap("write", errors.Join(err, w.Close()))
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, loc.wrap("commit", err)
	}

	info := loc.info(body, opts)
	if attrs := w.Attrs(); attrs != nil {
		info.ETag = attrs.Etag
		info.UpdatedAt = attrs.Updated
	}
	return info, nil
}

func (g *GCSAdapter) GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	loc := location{backend: "gcs", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return nil, ObjectInfo{}, err
	}

	r, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, loc.wrap("get", err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, ObjectInfo{}, loc.wrap("read", err)
	}

	info := loc.info(body, PutOptions{ContentType: r.Attrs.ContentType})
	info.UpdatedAt = r.Attrs.LastModified
	return body, info, nil
}

func (g *GCSAdapter) DeleteObject(ctx context.Context, bucket, key string) error {
	loc := location{backend: "gcs", bucket: bucket, key: key}
	if err := loc.check(); err != nil {
		return err
	}

	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return loc.wrap("delete", err)
	}
	return nil
}

func (g *GCSAdapter) Close() error {
	return g.client.Close()
}
