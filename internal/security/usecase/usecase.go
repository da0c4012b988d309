package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/config"
	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/goroutine"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
	"github.com/shandysiswandi/mynotes/internal/pkg/validator"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoRecord interface {
	LoadSecurityRecord(ctx context.Context, accountID string) (entity.SecurityRecord, error)
	SaveSecurityRecord(ctx context.Context, accountID string, rec entity.SecurityRecord) error
}

type repoMessaging interface {
	PublishLockout(ctx context.Context, evt entity.LockoutEvent) error
	PublishSecondFactorChanged(ctx context.Context, evt entity.SecondFactorChanged) error
}

type vault interface {
	Store(ctx context.Context, accountID, secretText string, persist mfa.PersistFunc) ([]byte, error)
	Retrieve(ctx context.Context, accountID string, blob []byte) (string, bool)
}

type Usecase struct {
	repoRecord    repoRecord
	repoMessaging repoMessaging
	identity      Identity
	vault         vault
	engine        *otp.Engine
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	uuid          uid.Generator
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	outcomes metric.Int64Counter
	lockouts metric.Int64Counter

	mu       sync.RWMutex
	sessions map[string]*Controller
}

type Dependency struct {
	RepoRecord    repoRecord
	RepoMessaging repoMessaging
	Identity      Identity
	Vault         vault
	Engine        *otp.Engine
	Validator     validator.Validator
	Config        config.Config
	Clock         clock.Clocker
	UUID          uid.Generator
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoRecord:    dep.RepoRecord,
		repoMessaging: dep.RepoMessaging,
		identity:      dep.Identity,
		vault:         dep.Vault,
		engine:        dep.Engine,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		uuid:          dep.UUID,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		sessions:      make(map[string]*Controller),
	}

	meter := s.ins.Meter("security.usecase")

	var err error
	s.outcomes, err = meter.Int64Counter("security.validation.outcomes", metric.WithDescription("Second factor validations by outcome"))
	if err != nil {
		slog.Error("failed to create validation outcome counter", "error", err)
	}

	s.lockouts, err = meter.Int64Counter("security.lockouts", metric.WithDescription("Sessions locked out after too many failures"))
	if err != nil {
		slog.Error("failed to create lockout counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("security.usecase").Start(ctx, name)
}

func (s *Usecase) controllerConfig(sessionID string, acc entity.Account) ControllerConfig {
	return ControllerConfig{
		SessionID:      sessionID,
		Account:        acc,
		Issuer:         s.cfg.GetString("mfa.issuer"),
		MaxAttempts:    s.cfg.GetInt("modules.security.max_attempts"),
		Heartbeat:      s.cfg.GetSecond("modules.security.token_heartbeat_seconds"),
		PersistRetries: s.cfg.GetUint64("modules.security.persist_retries"),
		PersistBackoff: time.Duration(s.cfg.GetInt("modules.security.persist_backoff_ms")) * time.Millisecond,
	}
}

func (s *Usecase) currentAccount(ctx context.Context) (entity.Account, error) {
	acc, ok := s.identity.CurrentAccount(ctx)
	if !ok {
		return entity.Account{}, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}
	return acc, nil
}

// session returns the open session id of the calling account.
func (s *Usecase) session(ctx context.Context, id string) (*Controller, error) {
	acc, err := s.currentAccount(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	ctrl, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || ctrl.Closed() {
		return nil, businessError(entity.ErrSessionNotFound)
	}

	if ctrl.Account().ID != acc.ID {
		slog.WarnContext(ctx, "session accessed by another account", "account_id", acc.ID, "session_id", id)
		return nil, businessError(entity.ErrSessionNotFound)
	}

	return ctrl, nil
}

func (s *Usecase) register(ctrl *Controller, single bool) []*Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced []*Controller
	if single {
		for id, other := range s.sessions {
			if other.Account().ID == ctrl.Account().ID {
				replaced = append(replaced, other)
				delete(s.sessions, id)
			}
		}
	}
	s.sessions[ctrl.ID()] = ctrl

	return replaced
}

func (s *Usecase) unregister(id string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctrl, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)

	return ctrl
}

// businessError maps domain sentinels to user facing goerror values. It
// returns nil for anything else.
func businessError(err error) error {
	switch {
	case errors.Is(err, entity.ErrSessionNotFound), errors.Is(err, entity.ErrSessionClosed):
		return goerror.NewBusiness("session not found", goerror.CodeNotFound)

	case errors.Is(err, entity.ErrLockedOut):
		return goerror.NewBusiness("too many failed attempts, sign in again", goerror.CodeLocked)

	case errors.Is(err, entity.ErrNotEnrolled):
		return goerror.NewBusiness("second factor is not enrolled", goerror.CodeNotFound)

	case errors.Is(err, otp.ErrInvalidSecretFormat):
		return goerror.NewInvalidInput(nil, "custom_secret", "custom_secret must match the required length and contain only A-Z and 2-7")

	case errors.Is(err, otp.ErrUnknownAlgorithm):
		return goerror.NewInvalidInput(nil, "algorithm", "algorithm must be one of SHA1, SHA256, SHA512")

	default:
		return nil
	}
}

// mapError translates controller and core errors to goerror values.
func (s *Usecase) mapError(ctx context.Context, ctrl *Controller, op string, err error) error {
	if berr := businessError(err); berr != nil {
		return berr
	}

	if errors.Is(err, entity.ErrConcurrentChange) {
		slog.WarnContext(ctx, "session changed during operation", "op", op, "session_id", ctrl.ID())
		return goerror.NewBusiness("session changed during the request, try again", goerror.CodeConflict)
	}

	slog.ErrorContext(ctx, "security operation failed", "op", op, "account_id", ctrl.Account().ID, "session_id", ctrl.ID(), "error", err)
	return goerror.NewServer(err)
}

// publish runs f in the background, detached from the request lifetime.
func (s *Usecase) publish(ctx context.Context, name string, f func(ctx context.Context, repo repoMessaging) error) {
	if s.repoMessaging == nil {
		return
	}

	repo := s.repoMessaging
	s.goroutine.Go(context.WithoutCancel(ctx), name, func(ctx context.Context) error {
		return f(ctx, repo)
	})
}

func (s *Usecase) publishChanged(ctx context.Context, ctrl *Controller) {
	st := ctrl.Status()
	evt := entity.SecondFactorChanged{
		AccountID:  st.AccountID,
		Enabled:    st.Enabled,
		Algorithm:  st.Algorithm.Algorithm,
		OccurredAt: s.clock.Now(),
	}

	s.publish(ctx, "security.publish.second_factor_changed", func(ctx context.Context, repo repoMessaging) error {
		return repo.PublishSecondFactorChanged(ctx, evt)
	})
}
