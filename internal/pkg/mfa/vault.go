package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrPersistFailed indicates the persistence collaborator kept failing; the
// previously persisted state remains authoritative.
var ErrPersistFailed = errors.New("mfa: persist failed")

// PersistFunc hands an encrypted blob to the persistence collaborator. It may
// be called more than once for the same blob.
type PersistFunc func(ctx context.Context, blob []byte) error

// Vault keeps TOTP secrets encrypted at rest.
type Vault struct {
	enc      Encryptor
	attempts uint64
	backoff  time.Duration
}

// VaultOption configures a Vault.
type VaultOption func(*Vault)

// WithPersistRetry sets how many times persistence is retried and the base
// backoff between attempts.
func WithPersistRetry(attempts uint64, backoff time.Duration) VaultOption {
	return func(v *Vault) {
		v.attempts = attempts
		v.backoff = backoff
	}
}

// NewVault constructs a Vault. By default persistence is retried twice with
// a 100ms base backoff.
func NewVault(enc Encryptor, opts ...VaultOption) *Vault {
	v := &Vault{
		enc:      enc,
		attempts: 2,
		backoff:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.backoff <= 0 {
		v.backoff = time.Millisecond
	}

	return v
}

// Seal encrypts the UTF-8 bytes of the Base32 secret text for an account.
func (v *Vault) Seal(ctx context.Context, accountID, secretText string) ([]byte, error) {
	return v.enc.Encrypt(ctx, []byte(secretText), seedScope(accountID))
}

// Store seals the secret and persists the blob. It returns the blob only when
// persistence succeeded.
func (v *Vault) Store(ctx context.Context, accountID, secretText string, persist PersistFunc) ([]byte, error) {
	blob, err := v.Seal(ctx, accountID, secretText)
	if err != nil {
		return nil, err
	}

	b := retry.WithMaxRetries(v.attempts, retry.WithCappedDuration(2*time.Second, retry.NewFibonacci(v.backoff)))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if err := persist(ctx, blob); err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.WarnContext(ctx, "failed to persist encrypted secret, retrying", "account_id", accountID, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	return blob, nil
}

// Retrieve decrypts a stored blob. It fails closed: an empty, malformed or
// tampered blob, or an unavailable key, yields ok == false.
func (v *Vault) Retrieve(ctx context.Context, accountID string, blob []byte) (secretText string, ok bool) {
	if len(blob) == 0 {
		return "", false
	}

	plain, err := v.enc.Decrypt(ctx, blob, seedScope(accountID))
	if err != nil {
		slog.WarnContext(ctx, "stored secret could not be decrypted", "account_id", accountID, "error", err)
		return "", false
	}

	return string(plain), true
}

func seedScope(accountID string) Scope {
	return Scope{AccountID: accountID, Purpose: PurposeOTPSeed}
}
