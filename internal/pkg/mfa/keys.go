package mfa

import (
	"context"
	"errors"
	"sync"
)

// ErrMissingAccount indicates a scope without an account id.
var ErrMissingAccount = errors.New("mfa: scope has no account id")

// StaticKeyProvider returns the same key for every scope. It backs the
// platform key store mode and wraps per-account keys at rest.
type StaticKeyProvider struct {
	// KeyBytes is the raw AES key material.
	KeyBytes []byte
}

// Key returns a copy of the static key.
func (p StaticKeyProvider) Key(_ context.Context, _ Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}

	k := make([]byte, len(p.KeyBytes))
	copy(k, p.KeyBytes)
	return k, nil
}

// KeySource issues the symmetric key of an account, creating it on first
// use.
type KeySource interface {
	GetOrCreateAccountKey(ctx context.Context, accountID string) ([]byte, error)
}

// AccountKeyProvider resolves per-account keys from a KeySource. Each key is
// fetched once and cached until Forget.
type AccountKeyProvider struct {
	source KeySource

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewAccountKeyProvider constructs an AccountKeyProvider.
func NewAccountKeyProvider(source KeySource) *AccountKeyProvider {
	return &AccountKeyProvider{
		source: source,
		cache:  make(map[string][]byte),
	}
}

// Key returns the key of scope.AccountID.
func (p *AccountKeyProvider) Key(ctx context.Context, scope Scope) ([]byte, error) {
	if scope.AccountID == "" {
		return nil, ErrMissingAccount
	}

	p.mu.RLock()
	k, ok := p.cache[scope.AccountID]
	p.mu.RUnlock()
	if ok {
		return k, nil
	}

	// fetched without holding the lock; the first stored key wins
	k, err := p.source.GetOrCreateAccountKey(ctx, scope.AccountID)
	if err != nil {
		return nil, err
	}
	if len(k) != aesKeyLen {
		return nil, ErrInvalidKeyLength
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[scope.AccountID]; ok {
		return cached, nil
	}
	p.cache[scope.AccountID] = k

	return k, nil
}

// Forget drops the cached key of an account.
func (p *AccountKeyProvider) Forget(accountID string) {
	p.mu.Lock()
	delete(p.cache, accountID)
	p.mu.Unlock()
}
