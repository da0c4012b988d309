package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
)

// Disable turns the second factor off for the session's account.
func (s *Usecase) Disable(ctx context.Context, in SessionInput) error {
	ctx, span := s.startSpan(ctx, "Disable")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return err
	}

	if err := ctrl.Disable(ctx); err != nil {
		return s.mapError(ctx, ctrl, "Disable", err)
	}

	slog.InfoContext(ctx, "second factor disabled", "account_id", ctrl.Account().ID, "session_id", ctrl.ID())
	s.publishChanged(ctx, ctrl)

	return nil
}
