package entity

import (
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
)

// LockoutEvent is published when a session exhausts its attempt budget.
type LockoutEvent struct {
	AccountID  string
	SessionID  string
	Failures   int
	OccurredAt time.Time
}

// SecondFactorChanged is published after enrollment, algorithm change or
// disablement has been persisted.
type SecondFactorChanged struct {
	AccountID  string
	Enabled    bool
	Algorithm  otp.Algorithm
	OccurredAt time.Time
}
