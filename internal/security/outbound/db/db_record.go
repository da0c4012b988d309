package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

func (s *DB) LoadSecurityRecord(ctx context.Context, accountID string) (_ entity.SecurityRecord, err error) {
	ctx, span := s.startSpan(ctx, "LoadSecurityRecord")
	defer func() { s.endSpan(span, err) }()

	var (
		enabled   bool
		algorithm string
		secret    []byte
		updatedAt time.Time
	)

	err = s.conn.QueryRow(ctx, `
		SELECT second_factor_enabled, algorithm, encrypted_secret, updated_at
		FROM security_records
		WHERE account_id = $1`, accountID).Scan(&enabled, &algorithm, &secret, &updatedAt)
	if err = s.mapError(err); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return entity.NewSecurityRecord(), nil
		}
		return entity.SecurityRecord{}, err
	}

	spec, ok := entity.StoredAlgorithm(algorithm)
	if !ok {
		slog.WarnContext(ctx, "unknown stored algorithm, using default", "account_id", accountID, "algorithm", algorithm)
	}

	return entity.SecurityRecord{
		SecondFactorEnabled: enabled,
		Algorithm:           spec,
		EncryptedSecret:     secret,
		UpdatedAt:           updatedAt,
	}, nil
}

func (s *DB) SaveSecurityRecord(ctx context.Context, accountID string, rec entity.SecurityRecord) (err error) {
	ctx, span := s.startSpan(ctx, "SaveSecurityRecord")
	defer func() { s.endSpan(span, err) }()

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.clock.Now()
	}

	var secret []byte
	if rec.HasSecret() {
		secret = rec.EncryptedSecret
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO security_records (account_id, second_factor_enabled, algorithm, encrypted_secret, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE SET
			second_factor_enabled = EXCLUDED.second_factor_enabled,
			algorithm = EXCLUDED.algorithm,
			encrypted_secret = EXCLUDED.encrypted_secret,
			updated_at = EXCLUDED.updated_at`,
		accountID, rec.SecondFactorEnabled, rec.Algorithm.Algorithm.String(), secret, updatedAt)

	return s.mapError(err)
}
