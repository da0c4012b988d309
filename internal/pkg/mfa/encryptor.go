package mfa

import "context"

// Encryptor defines the interface for encrypting/decrypting.
type Encryptor interface {
	// Encrypt returns an encrypted blob for the given plaintext and scope.
	Encrypt(ctx context.Context, plaintext []byte, scope Scope) (blob []byte, err error)
	// Decrypt returns plaintext for the given blob and scope.
	Decrypt(ctx context.Context, blob []byte, scope Scope) (plaintext []byte, err error)
}

// KeyProvider provides raw AES keys. For AES-256-GCM keys must be 32 bytes.
// Fetching a key may involve I/O.
type KeyProvider interface {
	Key(ctx context.Context, scope Scope) ([]byte, error)
}
