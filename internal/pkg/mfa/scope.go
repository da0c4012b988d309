package mfa

// Purpose identifies what a ciphertext protects.
type Purpose string

const (
	// PurposeOTPSeed scopes encryption to TOTP shared secrets.
	PurposeOTPSeed Purpose = "otp_seed"
	// PurposeAccountKey scopes encryption to wrapped per-account keys.
	PurposeAccountKey Purpose = "account_key"
)

// Scope binds a ciphertext to an account and a purpose. It is used as AAD
// (Additional Authenticated Data) in AES-GCM.
type Scope struct {
	AccountID string
	Purpose   Purpose
}
