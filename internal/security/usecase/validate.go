package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ValidateInput struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Code      string `json:"code" validate:"required,otpcode"`
}

// Validate checks a code for the session. A rejected code replies with the
// remaining retries. The failure that exhausts the budget tears the session
// down and publishes a lockout event; the client must sign out.
func (s *Usecase) Validate(ctx context.Context, in ValidateInput) (*entity.ValidationResult, error) {
	ctx, span := s.startSpan(ctx, "Validate")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	res, err := ctrl.Validate(ctx, in.Code)
	if err != nil {
		return nil, s.mapError(ctx, ctrl, "Validate", err)
	}

	if s.outcomes != nil {
		s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Outcome.String())))
	}

	switch res.Outcome {
	case entity.OutcomeAccepted:
		return &res, nil

	case entity.OutcomeRejected:
		slog.WarnContext(ctx, "second factor code rejected", "account_id", ctrl.Account().ID, "session_id", ctrl.ID(), "retries_remaining", res.RetriesRemaining)
		return nil, goerror.NewBusiness("invalid code", goerror.CodeUnauthorized, "retries_remaining", strconv.Itoa(res.RetriesRemaining))

	default:
		s.lockOut(ctx, ctrl)
		return nil, businessError(entity.ErrLockedOut)
	}
}

func (s *Usecase) lockOut(ctx context.Context, ctrl *Controller) {
	st := ctrl.Status()

	s.unregister(ctrl.ID())
	ctrl.Close()

	if s.lockouts != nil {
		s.lockouts.Add(ctx, 1)
	}

	slog.WarnContext(ctx, "session locked out", "account_id", st.AccountID, "session_id", st.SessionID, "failures", st.Failures)

	evt := entity.LockoutEvent{
		AccountID:  st.AccountID,
		SessionID:  st.SessionID,
		Failures:   st.Failures,
		OccurredAt: s.clock.Now(),
	}
	s.publish(ctx, "security.publish.lockout", func(ctx context.Context, repo repoMessaging) error {
		return repo.PublishLockout(ctx, evt)
	})
}
