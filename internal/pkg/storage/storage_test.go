package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	_, err := NewFromDriver(ctx, "", FactoryOptions{})
	assert.ErrorIs(t, err, ErrNoDriver)

	_, err = NewFromDriver(ctx, "azure", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	s, err := NewFromDriver(ctx, "MinIO", FactoryOptions{MinIO: MinIOOptions{Endpoint: "127.0.0.1:9000"}})
	require.NoError(t, err)
	assert.IsType(t, &MinIOAdapter{}, s)
	assert.NoError(t, s.Close())
}

func TestMinIOAdapter_LocationChecks(t *testing.T) {
	m, err := NewMinIO(MinIOOptions{Endpoint: "127.0.0.1:9000"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.PutObject(ctx, "", "k", []byte("x"), PutOptions{})
	assert.ErrorIs(t, err, ErrBucketRequired)

	_, _, err = m.GetObject(ctx, "b", "")
	assert.ErrorIs(t, err, ErrKeyRequired)

	assert.ErrorIs(t, m.DeleteObject(ctx, "", ""), ErrBucketRequired)
}

func TestGCSOptions_ClientOptions(t *testing.T) {
	ctx := context.Background()

	opts, err := GCSOptions{}.clientOptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = GCSOptions{WithoutAuth: true, Endpoint: "http://127.0.0.1:4443/storage/v1/"}.clientOptions(ctx)
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	_, err = GCSOptions{CredentialsFile: "/nonexistent/creds.json"}.clientOptions(ctx)
	assert.Error(t, err)

	_, err = GCSOptions{CredentialsJSON: []byte("{")}.clientOptions(ctx)
	assert.Error(t, err)
}
