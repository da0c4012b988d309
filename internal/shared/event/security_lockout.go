package event

const SecurityLockoutDestination string = "security_lockout"

// SecurityLockoutMessage tells the sign-in service to revoke the account's
// sessions.
type SecurityLockoutMessage struct {
	AccountID  string `json:"account_id"`
	SessionID  string `json:"session_id"`
	Failures   int    `json:"failures"`
	OccurredAt int64  `json:"occurred_at"`
}
