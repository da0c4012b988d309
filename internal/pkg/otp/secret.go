package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidSecretFormat is returned when secret text does not match the
// length or alphabet the active algorithm requires.
var ErrInvalidSecretFormat = errors.New("otp: invalid secret format")

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// NewSecretText returns n random characters drawn from the Base32 alphabet.
// The UTF-8 bytes of the text are the HMAC key, so the secret length in bytes
// equals n.
func NewSecretText(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: length %d", ErrInvalidSecretFormat, n)
	}

	limit := big.NewInt(int64(len(alphabet)))

	var sb strings.Builder
	sb.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[i.Int64()])
	}

	return sb.String(), nil
}

// CheckSecretText normalizes user supplied secret text to uppercase and checks
// it against the required length of spec and the Base32 alphabet.
func CheckSecretText(text string, spec AlgorithmSpec) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if len(s) != spec.SecretLength {
		return "", fmt.Errorf("%w: want %d characters, got %d", ErrInvalidSecretFormat, spec.SecretLength, len(s))
	}

	if !IsBase32Text(s) {
		return "", fmt.Errorf("%w: only A-Z and 2-7 are allowed", ErrInvalidSecretFormat)
	}

	return s, nil
}
