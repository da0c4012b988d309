// Package kv stores security records as redis hashes.
package kv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultPrefix = "security:record:"

const (
	fieldEnabled   = "enabled"
	fieldAlgorithm = "algorithm"
	fieldSecret    = "secret"
	fieldUpdatedAt = "updated_at"
)

type KV struct {
	rdb    redis.UniversalClient
	prefix string
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func NewKV(rdb redis.UniversalClient, prefix string, clk clock.Clocker, ins instrument.Instrumentation) *KV {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &KV{rdb: rdb, prefix: prefix, clock: clk, ins: ins}
}

func (s *KV) key(accountID string) string {
	return s.prefix + accountID
}

func (s *KV) LoadSecurityRecord(ctx context.Context, accountID string) (_ entity.SecurityRecord, err error) {
	ctx, span := s.startSpan(ctx, "LoadSecurityRecord")
	defer func() { s.endSpan(span, err) }()

	fields, err := s.rdb.HGetAll(ctx, s.key(accountID)).Result()
	if err != nil {
		return entity.SecurityRecord{}, err
	}
	if len(fields) == 0 {
		return entity.NewSecurityRecord(), nil
	}

	return s.decode(ctx, accountID, fields)
}

func (s *KV) SaveSecurityRecord(ctx context.Context, accountID string, rec entity.SecurityRecord) (err error) {
	ctx, span := s.startSpan(ctx, "SaveSecurityRecord")
	defer func() { s.endSpan(span, err) }()

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.clock.Now()
	}

	key := s.key(accountID)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldEnabled, strconv.FormatBool(rec.SecondFactorEnabled),
			fieldAlgorithm, rec.Algorithm.Algorithm.String(),
			fieldUpdatedAt, updatedAt.UTC().Format(time.RFC3339Nano),
		)
		if rec.HasSecret() {
			p.HSet(ctx, key, fieldSecret, base64.StdEncoding.EncodeToString(rec.EncryptedSecret))
		} else {
			p.HDel(ctx, key, fieldSecret)
		}
		return nil
	})

	return err
}

func (s *KV) decode(ctx context.Context, accountID string, fields map[string]string) (entity.SecurityRecord, error) {
	rec := entity.NewSecurityRecord()

	if v, ok := fields[fieldEnabled]; ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return entity.SecurityRecord{}, fmt.Errorf("security kv: field %s: %w", fieldEnabled, err)
		}
		rec.SecondFactorEnabled = enabled
	}

	spec, ok := entity.StoredAlgorithm(fields[fieldAlgorithm])
	if !ok {
		slog.WarnContext(ctx, "unknown stored algorithm, using default", "account_id", accountID, "algorithm", fields[fieldAlgorithm])
	}
	rec.Algorithm = spec

	if v := fields[fieldSecret]; v != "" {
		blob, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return entity.SecurityRecord{}, fmt.Errorf("security kv: field %s: %w", fieldSecret, err)
		}
		rec.EncryptedSecret = blob
	}

	if v := fields[fieldUpdatedAt]; v != "" {
		at, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return entity.SecurityRecord{}, fmt.Errorf("security kv: field %s: %w", fieldUpdatedAt, err)
		}
		rec.UpdatedAt = at
	}

	return rec, nil
}

func (s *KV) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("security.outbound.kv").Start(ctx, name)
}

func (s *KV) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
