//go:build integration

package kv

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewKV(rdb, "", clock.NewManual(time.Unix(1_700_000_000, 0).UTC()), instrument.NewNoop())

	rec, err := s.LoadSecurityRecord(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.NewSecurityRecord(), rec)

	want := entity.SecurityRecord{
		SecondFactorEnabled: true,
		Algorithm:           otp.AlgorithmSpec{Algorithm: otp.SHA512, SecretLength: 64},
		EncryptedSecret:     []byte("blob"),
		UpdatedAt:           time.Unix(1_700_000_100, 0).UTC(),
	}
	require.NoError(t, s.SaveSecurityRecord(ctx, "acc-1", want))

	got, err := s.LoadSecurityRecord(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.SaveSecurityRecord(ctx, "acc-1", entity.SecurityRecord{Algorithm: otp.Default()}))
	got, err = s.LoadSecurityRecord(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, got.HasSecret())
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), got.UpdatedAt)

	exists, err := rdb.HExists(ctx, "security:record:acc-1", "secret").Result()
	require.NoError(t, err)
	assert.False(t, exists)
}
