package otp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode is returned for malformed Base32 secret text.
var ErrDecode = errors.New("otp: malformed base32 secret")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// EncodeSecret returns the canonical form of a secret: uppercase Base32
// without padding.
func EncodeSecret(secret []byte) string {
	return b32.EncodeToString(secret)
}

// DecodeSecret parses Base32 secret text. Input is case-insensitive and may
// carry trailing padding; any other character outside A-Z and 2-7 is
// rejected.
func DecodeSecret(text string) ([]byte, error) {
	s := strings.TrimRight(strings.ToUpper(text), "=")
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrDecode)
	}

	if i := strings.IndexFunc(s, func(r rune) bool { return !isBase32Rune(r) }); i >= 0 {
		return nil, fmt.Errorf("%w: invalid character at %d", ErrDecode, i)
	}

	out, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return out, nil
}

// IsBase32Text reports whether s is non-empty and made only of uppercase
// Base32 alphabet characters.
func IsBase32Text(s string) bool {
	if s == "" {
		return false
	}

	return strings.IndexFunc(s, func(r rune) bool { return !isBase32Rune(r) }) < 0
}

func isBase32Rune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7')
}
