package otp

import (
	"errors"
	"strings"

	"github.com/pquerna/otp"
	"github.com/samber/lo"
)

// ErrUnknownAlgorithm is returned when an algorithm identifier is not part of
// the policy table.
var ErrUnknownAlgorithm = errors.New("otp: unknown algorithm")

// Algorithm identifies the HMAC hash function used to derive codes. The value
// is the name written into provisioning URIs.
type Algorithm string

// Supported algorithms.
const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

func (a Algorithm) String() string { return string(a) }

// AlgorithmSpec pairs an algorithm with the secret length it requires.
type AlgorithmSpec struct {
	Algorithm    Algorithm
	SecretLength int
}

type policyEntry struct {
	spec AlgorithmSpec
	hash otp.Algorithm
}

// Secret lengths follow each hash's native output size.
var policy = map[Algorithm]policyEntry{
	SHA1:   {spec: AlgorithmSpec{Algorithm: SHA1, SecretLength: 16}, hash: otp.AlgorithmSHA1},
	SHA256: {spec: AlgorithmSpec{Algorithm: SHA256, SecretLength: 32}, hash: otp.AlgorithmSHA256},
	SHA512: {spec: AlgorithmSpec{Algorithm: SHA512, SecretLength: 64}, hash: otp.AlgorithmSHA512},
}

var policyOrder = []Algorithm{SHA1, SHA256, SHA512}

// Default returns the recommended spec: HMAC-SHA256 with a 32 byte secret.
func Default() AlgorithmSpec {
	return policy[SHA256].spec
}

// RequiredLength returns the secret length the algorithm requires.
func RequiredLength(a Algorithm) (int, error) {
	spec, err := Lookup(a)
	if err != nil {
		return 0, err
	}

	return spec.SecretLength, nil
}

// Lookup returns the AlgorithmSpec registered for a.
func Lookup(a Algorithm) (AlgorithmSpec, error) {
	entry, ok := policy[a]
	if !ok {
		return AlgorithmSpec{}, ErrUnknownAlgorithm
	}

	return entry.spec, nil
}

// ParseAlgorithm resolves a user or storage supplied name. It is
// case-insensitive and tolerates the "Hmac" prefix used by JCA style names
// ("HmacSHA256").
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "HMAC")
	n = strings.ReplaceAll(n, "-", "")

	a := Algorithm(n)
	if _, ok := policy[a]; !ok {
		return "", ErrUnknownAlgorithm
	}

	return a, nil
}

// Specs lists the policy table in a stable order.
func Specs() []AlgorithmSpec {
	return lo.Map(policyOrder, func(a Algorithm, _ int) AlgorithmSpec {
		return policy[a].spec
	})
}

func (a Algorithm) hash() (otp.Algorithm, error) {
	entry, ok := policy[a]
	if !ok {
		return 0, ErrUnknownAlgorithm
	}

	return entry.hash, nil
}
