package mfa

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// Blob layout: 12-byte IV followed by the GCM output (ciphertext and its
// 16-byte tag).
const (
	ivSize    = 12
	tagSize   = 16
	aesKeyLen = 32
)

var (
	// ErrEncryptorNotConfigured indicates a missing key provider.
	ErrEncryptorNotConfigured = errors.New("mfa: encryptor not configured")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("mfa: plaintext is empty")
	// ErrInvalidKeyLength indicates the key is not an AES-256 key.
	ErrInvalidKeyLength = errors.New("mfa: invalid key length")
	// ErrBlobTooShort indicates a blob that cannot hold an IV and a tag.
	ErrBlobTooShort = errors.New("mfa: encrypted blob too short")
	// ErrEncryptFailed indicates encryption failure, including key lookup.
	ErrEncryptFailed = errors.New("mfa: encrypt failed")
	// ErrDecryptFailed indicates decryption failure.
	ErrDecryptFailed = errors.New("mfa: decrypt failed")
	// ErrMissingStaticKey indicates a missing static key.
	ErrMissingStaticKey = errors.New("mfa: missing static key")
)

// AESGCMEncryptor implements Encryptor using AES-256-GCM.
type AESGCMEncryptor struct {
	keys KeyProvider
}

// NewAESGCMEncryptor constructs an AES-GCM encryptor.
func NewAESGCMEncryptor(keys KeyProvider) *AESGCMEncryptor {
	return &AESGCMEncryptor{keys: keys}
}

// Encrypt seals plaintext under the scope's key with a fresh random IV,
// binding the result to scope via AAD.
func (e *AESGCMEncryptor) Encrypt(ctx context.Context, plaintext []byte, scope Scope) ([]byte, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := e.aead(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryptFailed, err)
	}

	out := make([]byte, ivSize, ivSize+len(plaintext)+tagSize)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("%w: iv generation: %w", ErrEncryptFailed, err)
	}

	return gcm.Seal(out, out[:ivSize], plaintext, scopeAAD(scope)), nil
}

// Decrypt opens a blob produced by Encrypt for the same scope.
func (e *AESGCMEncryptor) Decrypt(ctx context.Context, blob []byte, scope Scope) ([]byte, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}
	if len(blob) < ivSize+tagSize {
		return nil, ErrBlobTooShort
	}

	gcm, err := e.aead(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}

	plain, err := gcm.Open(nil, blob[:ivSize], blob[ivSize:], scopeAAD(scope))
	if err != nil {
		// wrong key, wrong scope and tampering are indistinguishable
		return nil, ErrDecryptFailed
	}

	return plain, nil
}

func (e *AESGCMEncryptor) aead(ctx context.Context, scope Scope) (cipher.AEAD, error) {
	key, err := e.keys.Key(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("key provider: %w", err)
	}
	if len(key) != aesKeyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), aesKeyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCMWithNonceSize(block, ivSize)
}

// scopeAAD hashes a canonical form of the scope so the AAD has a fixed length
// and raw account ids never appear in it.
func scopeAAD(s Scope) []byte {
	canonical := fmt.Sprintf("account=%s\npurpose=%s\n", s.AccountID, s.Purpose)
	sum := sha256.Sum256([]byte(canonical))
	return sum[:]
}
