package inbound

import (
	"net/http"

	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

type AlgorithmResponse struct {
	Name         string `json:"name"`
	SecretLength int    `json:"secret_length"`
}

type AlgorithmsResponse struct {
	Algorithms []AlgorithmResponse `json:"algorithms"`
}

func newAlgorithmResponse(spec otp.AlgorithmSpec) AlgorithmResponse {
	return AlgorithmResponse{Name: spec.Algorithm.String(), SecretLength: spec.SecretLength}
}

type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Enabled   bool              `json:"enabled"`
	Enrolled  bool              `json:"enrolled"`
	Algorithm AlgorithmResponse `json:"algorithm"`
	Failures  int               `json:"failures"`
	LockedOut bool              `json:"locked_out"`
}

func newSessionResponse(st *entity.Status) SessionResponse {
	return SessionResponse{
		SessionID: st.SessionID,
		Enabled:   st.Enabled,
		Enrolled:  st.Enrolled,
		Algorithm: newAlgorithmResponse(st.Algorithm),
		Failures:  st.Failures,
		LockedOut: st.LockedOut,
	}
}

// OpenSessionResponse replies 201 for a newly opened session.
type OpenSessionResponse struct {
	SessionResponse
}

func (OpenSessionResponse) StatusCode() int { return http.StatusCreated }

func (OpenSessionResponse) Message() string { return "Session opened" }

type EnrollRequest struct {
	CustomSecret *string `json:"custom_secret"`
}

type EnrollResponse struct {
	Secret          string `json:"secret"`
	Base32Secret    string `json:"base32_secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

func (EnrollResponse) Message() string { return "Second factor enrolled" }

type ValidateRequest struct {
	Code string `json:"code"`
}

type ValidateResponse struct {
	Outcome string `json:"outcome"`
}

func (ValidateResponse) Message() string { return "Code accepted" }

type SetAlgorithmRequest struct {
	Algorithm string `json:"algorithm"`
}

type TokenResponse struct {
	Code      string `json:"code"`
	Counter   uint64 `json:"counter"`
	ExpiresIn int    `json:"expires_in"`
}

func newTokenResponse(tok entity.Token) TokenResponse {
	return TokenResponse{
		Code:      tok.Code,
		Counter:   tok.Counter,
		ExpiresIn: int(tok.ExpiresIn.Seconds()),
	}
}
