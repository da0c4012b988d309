package otp

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// ErrEmptyLabel is returned when the account or issuer label is missing.
var ErrEmptyLabel = errors.New("otp: empty account or issuer label")

// URIParams describes a TOTP key for an authenticator app.
type URIParams struct {
	Account   string
	Issuer    string
	Secret    string // base32, no padding
	Algorithm Algorithm
	Digits    int
	Period    int
}

// BuildURI returns the otpauth:// provisioning URI:
//
//	otpauth://totp/<issuer>:<account>?secret=..&issuer=..&algorithm=..&digits=..&period=..
//
// Zero Digits and Period default to 6 and 30.
func BuildURI(p URIParams) (string, error) {
	if _, err := Lookup(p.Algorithm); err != nil {
		return "", err
	}

	if strings.TrimSpace(p.Account) == "" || strings.TrimSpace(p.Issuer) == "" {
		return "", ErrEmptyLabel
	}

	if p.Digits == 0 {
		p.Digits = Digits
	}

	if p.Period == 0 {
		p.Period = Period
	}

	var sb strings.Builder
	sb.WriteString("otpauth://totp/")
	sb.WriteString(labelEscape(p.Issuer))
	sb.WriteByte(':')
	sb.WriteString(labelEscape(p.Account))
	sb.WriteString("?secret=")
	sb.WriteString(queryEscape(p.Secret))
	sb.WriteString("&issuer=")
	sb.WriteString(queryEscape(p.Issuer))
	sb.WriteString("&algorithm=")
	sb.WriteString(p.Algorithm.String())
	sb.WriteString("&digits=")
	sb.WriteString(strconv.Itoa(p.Digits))
	sb.WriteString("&period=")
	sb.WriteString(strconv.Itoa(p.Period))

	return sb.String(), nil
}

// The colon separates issuer and account inside the label.
func labelEscape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}

// Authenticator apps expect %20 rather than '+' for spaces.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
