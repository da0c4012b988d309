package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
)

type SessionInput struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

// OpenSession loads the caller's security record and starts a session for
// it. A stored secret that cannot be decrypted leaves the session not
// enrolled.
func (s *Usecase) OpenSession(ctx context.Context) (*entity.Status, error) {
	ctx, span := s.startSpan(ctx, "OpenSession")
	defer span.End()

	acc, err := s.currentAccount(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.repoRecord.LoadSecurityRecord(ctx, acc.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo load security record", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	secret := s.retrieveSecret(ctx, acc.ID, rec)

	ctrl := NewController(s.controllerConfig(s.uuid.Generate(), acc), rec, secret, s.engine, s.vault, s.repoRecord, s.clock)
	for _, old := range s.register(ctrl, s.cfg.GetBool("modules.security.single_session")) {
		slog.InfoContext(ctx, "previous session replaced", "account_id", acc.ID, "session_id", old.ID())
		old.Close()
	}

	slog.InfoContext(ctx, "security session opened", "account_id", acc.ID, "session_id", ctrl.ID())

	st := ctrl.Status()
	return &st, nil
}

func (s *Usecase) retrieveSecret(ctx context.Context, accountID string, rec entity.SecurityRecord) string {
	if !rec.SecondFactorEnabled || !rec.HasSecret() {
		return ""
	}

	b32, ok := s.vault.Retrieve(ctx, accountID, rec.EncryptedSecret)
	if !ok {
		return ""
	}

	raw, err := otp.DecodeSecret(b32)
	if err != nil {
		slog.WarnContext(ctx, "stored secret is not base32", "account_id", accountID)
		return ""
	}

	text := string(raw)
	if _, err := otp.CheckSecretText(text, rec.Algorithm); err != nil {
		slog.WarnContext(ctx, "stored secret does not match its algorithm", "account_id", accountID, "algorithm", rec.Algorithm.Algorithm)
		return ""
	}

	return text
}

// SessionStatus returns a snapshot of one of the caller's sessions.
func (s *Usecase) SessionStatus(ctx context.Context, in SessionInput) (*entity.Status, error) {
	ctx, span := s.startSpan(ctx, "SessionStatus")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	st := ctrl.Status()
	return &st, nil
}

// CloseSession discards a session: its secret and attempt state are dropped
// and token streams end.
func (s *Usecase) CloseSession(ctx context.Context, in SessionInput) error {
	ctx, span := s.startSpan(ctx, "CloseSession")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ctrl, err := s.session(ctx, in.SessionID)
	if err != nil {
		return err
	}

	s.unregister(ctrl.ID())
	ctrl.Close()

	slog.InfoContext(ctx, "security session closed", "account_id", ctrl.Account().ID, "session_id", ctrl.ID())

	return nil
}

// Shutdown closes every open session.
func (s *Usecase) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Controller)
	s.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Close()
	}
}
