package otp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
)

// Fixed code parameters shared with authenticator apps.
const (
	Digits = 6
	Period = 30
	Skew   = 1
)

// ErrEmptySecret is returned when a code is requested for an empty secret.
var ErrEmptySecret = errors.New("otp: empty secret")

// Engine generates and validates codes. It never performs I/O and is safe for
// concurrent use.
type Engine struct {
	period uint
	skew   uint
	digits otp.Digits
}

// NewEngine returns an engine with 6 digits, a 30 second period and one step
// of tolerance on each side.
func NewEngine() *Engine {
	return &Engine{
		period: Period,
		skew:   Skew,
		digits: otp.DigitsSix,
	}
}

// Counter returns the time step index of t.
func (e *Engine) Counter(t time.Time) uint64 {
	u := t.Unix()
	if u < 0 {
		return 0
	}

	return uint64(u) / uint64(e.period)
}

// Remaining returns how long the code for t stays current.
func (e *Engine) Remaining(t time.Time) time.Duration {
	p := int64(e.period)
	return time.Duration(p-t.Unix()%p) * time.Second
}

// Generate returns the code for a counter value.
func (e *Engine) Generate(secret []byte, alg Algorithm, counter uint64) (string, error) {
	h, err := alg.hash()
	if err != nil {
		return "", err
	}

	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	return hotp.GenerateCodeCustom(EncodeSecret(secret), counter, hotp.ValidateOpts{
		Digits:    e.digits,
		Algorithm: h,
	})
}

// GenerateAt returns the code for the time step containing t.
func (e *Engine) GenerateAt(secret []byte, alg Algorithm, t time.Time) (string, error) {
	return e.Generate(secret, alg, e.Counter(t))
}

// Validate reports whether code matches the counter of now or one of its
// immediate neighbours. An empty secret never matches.
func (e *Engine) Validate(secret []byte, alg Algorithm, code string, now time.Time) (bool, error) {
	h, err := alg.hash()
	if err != nil {
		return false, err
	}

	if len(secret) == 0 || !e.wellFormed(code) {
		return false, nil
	}

	ok, err := totp.ValidateCustom(code, EncodeSecret(secret), now, totp.ValidateOpts{
		Period:    e.period,
		Skew:      e.skew,
		Digits:    e.digits,
		Algorithm: h,
	})

	return ok && err == nil, nil
}

func (e *Engine) wellFormed(code string) bool {
	if len(code) != e.digits.Length() {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}

	return true
}
