package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

type SetAlgorithmInput struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Algorithm string `json:"algorithm" validate:"required,otpalgorithm"`
}

// Algorithms lists the supported algorithms and their secret lengths.
func (s *Usecase) Algorithms(ctx context.Context) []otp.AlgorithmSpec {
	_, span := s.startSpan(ctx, "Algorithms")
	defer span.End()

	return otp.Specs()
}

// SetAlgorithm switches the session's algorithm. The enrolled secret is
// dropped and the caller has to enroll again.
func (s *Usecase) SetAlgorithm(ctx context.Context, in SetAlgorithmInput) (*entity.Status, error) {
	ctx, span := s.startSpan(ctx, "SetAlgorithm")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	alg, err := otp.ParseAlgorithm(in.Algorithm)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "algorithm", "algorithm must be one of SHA1, SHA256, SHA512")
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	if err := ctrl.SetAlgorithm(ctx, alg); err != nil {
		return nil, s.mapError(ctx, ctrl, "SetAlgorithm", err)
	}

	slog.InfoContext(ctx, "second factor algorithm changed", "account_id", ctrl.Account().ID, "session_id", ctrl.ID(), "algorithm", alg)
	s.publishChanged(ctx, ctrl)

	st := ctrl.Status()
	return &st, nil
}
