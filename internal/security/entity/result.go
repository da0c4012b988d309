package entity

import (
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
)

// Outcome is the result class of a validation.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejected
	OutcomeLockedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeLockedOut:
		return "locked_out"
	default:
		return "unknown"
	}
}

// ValidationResult is returned by a validation. RetriesRemaining is only
// meaningful for OutcomeRejected.
type ValidationResult struct {
	Outcome          Outcome
	RetriesRemaining int
}

// Enrollment is returned by a successful enrollment.
type Enrollment struct {
	PlainSecret     string
	Base32Secret    string
	ProvisioningURI string
}

// Token is one emission of the live token stream.
type Token struct {
	Code      string
	Counter   uint64
	ExpiresIn time.Duration
}

// Status is a snapshot of a session.
type Status struct {
	SessionID string
	AccountID string
	Enabled   bool
	Enrolled  bool
	Algorithm otp.AlgorithmSpec
	Failures  int
	LockedOut bool
}
