package entity

import (
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
)

// SecurityRecord is the persisted second-factor state of an account.
// EncryptedSecret is nil when nothing is enrolled.
type SecurityRecord struct {
	SecondFactorEnabled bool
	Algorithm           otp.AlgorithmSpec
	EncryptedSecret     []byte
	UpdatedAt           time.Time
}

// NewSecurityRecord returns the record of an account that never enrolled.
func NewSecurityRecord() SecurityRecord {
	return SecurityRecord{Algorithm: otp.Default()}
}

// HasSecret reports whether an encrypted secret is present.
func (r SecurityRecord) HasSecret() bool {
	return len(r.EncryptedSecret) > 0
}

// StoredAlgorithm resolves an algorithm name read from a record store. Names
// outside the policy table fall back to the default spec and report false.
func StoredAlgorithm(name string) (otp.AlgorithmSpec, bool) {
	if name == "" {
		return otp.Default(), true
	}

	alg, err := otp.ParseAlgorithm(name)
	if err != nil {
		return otp.Default(), false
	}

	spec, err := otp.Lookup(alg)
	if err != nil {
		return otp.Default(), false
	}

	return spec, true
}
