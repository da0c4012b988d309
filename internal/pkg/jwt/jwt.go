package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSigningMethod = errors.New("jwt: unexpected signing method")
	ErrSigningKeyTooShort   = errors.New("jwt: HS512 secret must be at least 64 bytes")
	ErrTokenExpired         = errors.New("jwt: token expired")
	ErrInvalidToken         = errors.New("jwt: invalid token")
	ErrMissingDependency    = errors.New("jwt: config requires a clock and an id generator")
)

// JWT issues and checks the bearer tokens that identify an account.
type JWT interface {
	Generate(accountID, accountLabel string) (string, error)
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type jwtContextKey struct{}

// Config holds the signing material and the claims every token carries. An
// empty Issuer or Audiences disables that check on Verify.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     clocker
	UUID      generator
}

// Claims are the registered claims plus the account the token speaks for.
// AccountLabel is what authenticator apps show, usually the email.
type Claims struct {
	jwt.RegisteredClaims
	AccountID    string `json:"account_id"`
	AccountLabel string `json:"account_label"`
}

// GetAuth returns the claims of the authenticated request, or nil.
func GetAuth(ctx context.Context) *Claims {
	if clm, ok := ctx.Value(jwtContextKey{}).(Claims); ok {
		return &clm
	}
	return nil
}

// SetAuth returns a copy of ctx carrying clm.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
