package entity

// DefaultMaxAttempts is the number of consecutive failures that locks a session.
const DefaultMaxAttempts = 3

// Signal tells the caller what to do after a validation attempt.
type Signal int

const (
	// SignalNone follows a success.
	SignalNone Signal = iota
	// SignalRetry follows a failure that still leaves attempts.
	SignalRetry
	// SignalFatal follows the failure that exhausted the budget. The caller
	// must sign out and discard the session.
	SignalFatal
)

func (s Signal) String() string {
	switch s {
	case SignalRetry:
		return "retry"
	case SignalFatal:
		return "fatal"
	default:
		return "none"
	}
}

// AttemptGuard counts consecutive validation failures. Once locked it stays
// locked until Reset. The zero value is not usable, see NewAttemptGuard.
type AttemptGuard struct {
	limit     int
	failures  int
	lockedOut bool
}

// NewAttemptGuard returns a guard that locks after limit consecutive
// failures. Non-positive values fall back to DefaultMaxAttempts.
func NewAttemptGuard(limit int) AttemptGuard {
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	return AttemptGuard{limit: limit}
}

// Success resets the failure count. It has no effect once locked.
func (g *AttemptGuard) Success() Signal {
	if g.lockedOut {
		return SignalFatal
	}
	g.failures = 0
	return SignalNone
}

// Failure records one failed attempt.
func (g *AttemptGuard) Failure() Signal {
	if g.lockedOut {
		return SignalFatal
	}

	g.failures++
	if g.failures >= g.limit {
		g.lockedOut = true
		return SignalFatal
	}

	return SignalRetry
}

// Reset returns the guard to its initial state.
func (g *AttemptGuard) Reset() {
	g.failures = 0
	g.lockedOut = false
}

// Failures returns the current count of consecutive failures.
func (g *AttemptGuard) Failures() int { return g.failures }

// LockedOut reports whether the budget is exhausted.
func (g *AttemptGuard) LockedOut() bool { return g.lockedOut }

// Remaining returns how many failures are still allowed.
func (g *AttemptGuard) Remaining() int {
	if g.lockedOut {
		return 0
	}
	return g.limit - g.failures
}
