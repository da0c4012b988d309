package usecase

import (
	"context"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

// CurrentToken returns the code of the current time step.
func (s *Usecase) CurrentToken(ctx context.Context, in SessionInput) (*entity.Token, error) {
	ctx, span := s.startSpan(ctx, "CurrentToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	tok, err := ctrl.CurrentToken()
	if err != nil {
		return nil, s.mapError(ctx, ctrl, "CurrentToken", err)
	}

	return &tok, nil
}

// StreamTokens subscribes to the session's live token. The channel closes
// when ctx is done or the session ends. Its span covers the subscription only.
func (s *Usecase) StreamTokens(ctx context.Context, in SessionInput) (<-chan entity.Token, error) {
	spanCtx, span := s.startSpan(ctx, "StreamTokens")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(spanCtx, in.SessionID)
	if err != nil {
		return nil, err
	}

	return ctrl.Tokens(ctx), nil
}

// ProvisioningMatrix renders the pairing QR of the enrolled secret. A nil
// matrix means nothing is enrolled yet.
func (s *Usecase) ProvisioningMatrix(ctx context.Context, in SessionInput) (*otp.Matrix, error) {
	ctx, span := s.startSpan(ctx, "ProvisioningMatrix")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	uri, err := ctrl.ProvisioningURI()
	if err != nil {
		return nil, s.mapError(ctx, ctrl, "ProvisioningMatrix", err)
	}

	m, err := otp.RenderMatrix(uri)
	if err != nil {
		return nil, s.mapError(ctx, ctrl, "ProvisioningMatrix", err)
	}

	return m, nil
}
