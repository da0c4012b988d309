package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

type EnrollInput struct {
	SessionID    string  `json:"session_id" validate:"required,uuid"`
	CustomSecret *string `json:"custom_secret" validate:"omitempty,base32secret"`
}

// Enroll creates a new secret for the session, or accepts the caller's own,
// and enables the second factor once it is persisted.
func (s *Usecase) Enroll(ctx context.Context, in EnrollInput) (*entity.Enrollment, error) {
	ctx, span := s.startSpan(ctx, "Enroll")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	out, err := ctrl.Enroll(ctx, in.CustomSecret)
	if err != nil {
		return nil, s.mapError(ctx, ctrl, "Enroll", err)
	}

	slog.InfoContext(ctx, "second factor enrolled", "account_id", ctrl.Account().ID, "session_id", ctrl.ID(), "custom", in.CustomSecret != nil)
	s.publishChanged(ctx, ctrl)

	return &out, nil
}
