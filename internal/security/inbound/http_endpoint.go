package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/pkg/router"
	"github.com/shandysiswandi/mynotes/internal/security/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

// Algorithms lists the supported algorithms.
// @Summary List algorithms
// @Description Returns the supported HMAC algorithms and the secret length each requires.
// @Tags Security
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=AlgorithmsResponse} "Algorithm list"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Router /api/v1/security/algorithms [get]
func (h *HTTPEndpoint) Algorithms(r *router.Request) (any, error) {
	specs := h.uc.Algorithms(r.Context())

	return AlgorithmsResponse{
		Algorithms: lo.Map(specs, func(s otp.AlgorithmSpec, _ int) AlgorithmResponse {
			return newAlgorithmResponse(s)
		}),
	}, nil
}

// OpenSession opens a second factor session for the caller.
// @Summary Open session
// @Description Loads the caller's security record and opens a session for it.
// @Tags Security
// @Security BearerAuth
// @Produce json
// @Success 201 {object} router.successResponse{data=OpenSessionResponse} "Session opened"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/security/sessions [post]
func (h *HTTPEndpoint) OpenSession(r *router.Request) (any, error) {
	st, err := h.uc.OpenSession(r.Context())
	if err != nil {
		return nil, err
	}

	return OpenSessionResponse{SessionResponse: newSessionResponse(st)}, nil
}

// SessionStatus returns the state of a session.
// @Summary Session status
// @Tags Security
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} router.successResponse{data=SessionResponse} "Session status"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/security/sessions/{id} [get]
func (h *HTTPEndpoint) SessionStatus(r *router.Request) (any, error) {
	st, err := h.uc.SessionStatus(r.Context(), usecase.SessionInput{SessionID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return newSessionResponse(st), nil
}

// CloseSession ends a session. Clients call it on sign-out.
// @Summary Close session
// @Tags Security
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/security/sessions/{id} [delete]
func (h *HTTPEndpoint) CloseSession(r *router.Request) (any, error) {
	return nil, h.uc.CloseSession(r.Context(), usecase.SessionInput{SessionID: r.GetParam("id")})
}

// Enroll creates or accepts a secret and enables the second factor.
// @Summary Enroll second factor
// @Description Generates a secret, or accepts custom_secret, persists it encrypted and enables the second factor.
// @Tags Security
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body EnrollRequest false "Optional custom secret"
// @Success 200 {object} router.successResponse{data=EnrollResponse} "Enrolled"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/security/sessions/{id}/enroll [post]
func (h *HTTPEndpoint) Enroll(r *router.Request) (any, error) {
	var req EnrollRequest
	if err := r.DecodeBody(&req, true); err != nil {
		return nil, err
	}

	out, err := h.uc.Enroll(r.Context(), usecase.EnrollInput{
		SessionID:    r.GetParam("id"),
		CustomSecret: req.CustomSecret,
	})
	if err != nil {
		return nil, err
	}

	return EnrollResponse{
		Secret:          out.PlainSecret,
		Base32Secret:    out.Base32Secret,
		ProvisioningURI: out.ProvisioningURI,
	}, nil
}

// Validate checks a one-time code.
// @Summary Validate code
// @Description Validates a 6 digit code. A rejected code reports retries_remaining; the last failure locks the session out.
// @Tags Security
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ValidateRequest true "Code"
// @Success 200 {object} router.successResponse{data=ValidateResponse} "Accepted"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Rejected"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 423 {object} router.errorResponse "Locked out"
// @Router /api/v1/security/sessions/{id}/validate [post]
func (h *HTTPEndpoint) Validate(r *router.Request) (any, error) {
	var req ValidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	res, err := h.uc.Validate(r.Context(), usecase.ValidateInput{
		SessionID: r.GetParam("id"),
		Code:      req.Code,
	})
	if err != nil {
		return nil, err
	}

	return ValidateResponse{Outcome: res.Outcome.String()}, nil
}

// SetAlgorithm switches the algorithm and drops the enrolled secret.
// @Summary Set algorithm
// @Tags Security
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SetAlgorithmRequest true "Algorithm"
// @Success 200 {object} router.successResponse{data=SessionResponse} "Session status"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/security/sessions/{id}/algorithm [put]
func (h *HTTPEndpoint) SetAlgorithm(r *router.Request) (any, error) {
	var req SetAlgorithmRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	st, err := h.uc.SetAlgorithm(r.Context(), usecase.SetAlgorithmInput{
		SessionID: r.GetParam("id"),
		Algorithm: req.Algorithm,
	})
	if err != nil {
		return nil, err
	}

	return newSessionResponse(st), nil
}

// Disable turns the second factor off.
// @Summary Disable second factor
// @Tags Security
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/security/sessions/{id}/second-factor [delete]
func (h *HTTPEndpoint) Disable(r *router.Request) (any, error) {
	return nil, h.uc.Disable(r.Context(), usecase.SessionInput{SessionID: r.GetParam("id")})
}

// CurrentToken returns the code of the current time step.
// @Summary Current token
// @Tags Security
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} router.successResponse{data=TokenResponse} "Token"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found or not enrolled"
// @Router /api/v1/security/sessions/{id}/token [get]
func (h *HTTPEndpoint) CurrentToken(r *router.Request) (any, error) {
	tok, err := h.uc.CurrentToken(r.Context(), usecase.SessionInput{SessionID: r.GetParam("id")})
	if err != nil {
		return nil, err
	}

	return newTokenResponse(*tok), nil
}
