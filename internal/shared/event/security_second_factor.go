package event

const SecuritySecondFactorChangedDestination string = "security_second_factor_changed"

type SecuritySecondFactorChangedMessage struct {
	AccountID  string `json:"account_id"`
	Enabled    bool   `json:"enabled"`
	Algorithm  string `json:"algorithm"`
	OccurredAt int64  `json:"occurred_at"`
}
