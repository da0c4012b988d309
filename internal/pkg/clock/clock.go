package clock

import "time"

// Clocker is the time source of the security engine. TOTP counters, token
// streams and session idle checks all read time through it.
type Clocker interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// System reads the wall clock.
type System struct{}

// New returns the wall clock.
func New() System {
	return System{}
}

func (System) Now() time.Time {
	return time.Now()
}

func (System) NewTicker(d time.Duration) Ticker {
	return systemTicker{Ticker: time.NewTicker(d)}
}

type systemTicker struct {
	*time.Ticker
}

func (t systemTicker) C() <-chan time.Time { return t.Ticker.C }
