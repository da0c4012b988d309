package db

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
)

const accountKeyLen = 32

// ErrKeyWrapNotConfigured is returned when keys are requested from a store
// built without a wrapping encryptor.
var ErrKeyWrapNotConfigured = errors.New("security db: key wrapping not configured")

// GetOrCreateAccountKey returns the AES key of an account, issuing one on
// first use. Concurrent issuers race on insert; every caller ends up with the
// key that was stored first.
func (s *DB) GetOrCreateAccountKey(ctx context.Context, accountID string) (_ []byte, err error) {
	ctx, span := s.startSpan(ctx, "GetOrCreateAccountKey")
	defer func() { s.endSpan(span, err) }()

	if s.wrap == nil {
		return nil, ErrKeyWrapNotConfigured
	}

	scope := mfa.Scope{AccountID: accountID, Purpose: mfa.PurposeAccountKey}

	wrapped, err := s.wrappedKey(ctx, accountID)
	if errors.Is(err, goerror.ErrNotFound) {
		if err = s.issueKey(ctx, accountID, scope); err != nil {
			return nil, err
		}
		wrapped, err = s.wrappedKey(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}

	key, err := s.wrap.Decrypt(ctx, wrapped, scope)
	if err != nil {
		return nil, fmt.Errorf("unwrap account key: %w", err)
	}

	return key, nil
}

func (s *DB) wrappedKey(ctx context.Context, accountID string) ([]byte, error) {
	var wrapped []byte
	err := s.conn.QueryRow(ctx,
		`SELECT wrapped_key FROM security_account_keys WHERE account_id = $1`, accountID).Scan(&wrapped)
	if err != nil {
		return nil, s.mapError(err)
	}

	return wrapped, nil
}

func (s *DB) issueKey(ctx context.Context, accountID string, scope mfa.Scope) error {
	key := make([]byte, accountKeyLen)
	if _, err := rand.Read(key); err != nil {
		return err
	}

	wrapped, err := s.wrap.Encrypt(ctx, key, scope)
	if err != nil {
		return fmt.Errorf("wrap account key: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO security_account_keys (account_id, wrapped_key, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING`,
		accountID, wrapped, s.clock.Now())

	return s.mapError(err)
}
