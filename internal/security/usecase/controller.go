package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"go.uber.org/atomic"
)

// ControllerConfig carries the per-session settings of a Controller.
type ControllerConfig struct {
	SessionID      string
	Account        entity.Account
	Issuer         string
	MaxAttempts    int
	Heartbeat      time.Duration
	PersistRetries uint64
	PersistBackoff time.Duration
}

// Controller owns the second-factor state of one authenticated session: the
// plaintext secret, the active algorithm, the enabled flag and the attempt
// guard. Its mutex is never held across I/O. Operations that persist run one
// at a time through the ops slot, take a snapshot, perform the I/O and commit
// only when nothing changed meanwhile.
type Controller struct {
	id        string
	account   entity.Account
	issuer    string
	heartbeat time.Duration
	retries   uint64
	backoff   time.Duration

	engine *otp.Engine
	vault  vault
	repo   repoRecord
	clock  clock.Clocker

	mu      sync.Mutex
	version uint64
	secret  string
	spec    otp.AlgorithmSpec
	enabled bool
	guard   entity.AttemptGuard
	done    chan struct{}
	ops     chan struct{}

	closed       *atomic.Bool
	lastActivity *atomic.Time
}

// NewController builds a controller from a loaded record. secretText is the
// decrypted secret, empty when nothing usable is enrolled.
func NewController(cfg ControllerConfig, rec entity.SecurityRecord, secretText string,
	engine *otp.Engine, v vault, repo repoRecord, clk clock.Clocker,
) *Controller {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = time.Second
	}
	if cfg.PersistBackoff <= 0 {
		cfg.PersistBackoff = 100 * time.Millisecond
	}

	c := &Controller{
		id:           cfg.SessionID,
		account:      cfg.Account,
		issuer:       cfg.Issuer,
		heartbeat:    cfg.Heartbeat,
		retries:      cfg.PersistRetries,
		backoff:      cfg.PersistBackoff,
		engine:       engine,
		vault:        v,
		repo:         repo,
		clock:        clk,
		spec:         rec.Algorithm,
		guard:        entity.NewAttemptGuard(cfg.MaxAttempts),
		done:         make(chan struct{}),
		ops:          make(chan struct{}, 1),
		closed:       atomic.NewBool(false),
		lastActivity: atomic.NewTime(clk.Now()),
	}

	if rec.SecondFactorEnabled && secretText != "" {
		c.secret = secretText
		c.enabled = true
	}

	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Account returns the session owner.
func (c *Controller) Account() entity.Account { return c.account }

// LastActivity returns the time of the last operation on the session.
func (c *Controller) LastActivity() time.Time { return c.lastActivity.Load() }

// Closed reports whether Close was called.
func (c *Controller) Closed() bool { return c.closed.Load() }

func (c *Controller) touch() {
	c.lastActivity.Store(c.clock.Now())
}

// acquire takes the ops slot, so the persisted record and the in-memory
// state always follow the same order of writes.
func (c *Controller) acquire(ctx context.Context) error {
	select {
	case c.ops <- struct{}{}:
		return nil
	case <-c.done:
		return entity.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) release() { <-c.ops }

// snapshot returns the state needed by an I/O bound operation.
func (c *Controller) snapshot() (version uint64, spec otp.AlgorithmSpec, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return 0, otp.AlgorithmSpec{}, entity.ErrSessionClosed
	}

	return c.version, c.spec, nil
}

// commit applies f if the state is still at version.
func (c *Controller) commit(version uint64, f func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return entity.ErrSessionClosed
	}
	if c.version != version {
		return entity.ErrConcurrentChange
	}

	f()
	c.version++
	return nil
}

// Enroll creates or accepts a secret for the active algorithm, persists it
// encrypted and only then enables the second factor. A nil custom text
// generates a random secret.
func (c *Controller) Enroll(ctx context.Context, custom *string) (entity.Enrollment, error) {
	c.touch()

	if err := c.acquire(ctx); err != nil {
		return entity.Enrollment{}, err
	}
	defer c.release()

	version, spec, err := c.snapshot()
	if err != nil {
		return entity.Enrollment{}, err
	}

	var text string
	if custom == nil {
		text, err = otp.NewSecretText(spec.SecretLength)
	} else {
		text, err = otp.CheckSecretText(*custom, spec)
	}
	if err != nil {
		return entity.Enrollment{}, err
	}

	b32 := otp.EncodeSecret([]byte(text))
	uri, err := otp.BuildURI(otp.URIParams{
		Account:   c.label(),
		Issuer:    c.issuer,
		Secret:    b32,
		Algorithm: spec.Algorithm,
	})
	if err != nil {
		return entity.Enrollment{}, err
	}

	rec := entity.SecurityRecord{
		SecondFactorEnabled: true,
		Algorithm:           spec,
		UpdatedAt:           c.clock.Now(),
	}
	_, err = c.vault.Store(ctx, c.account.ID, b32, func(ctx context.Context, blob []byte) error {
		rec.EncryptedSecret = blob
		return c.repo.SaveSecurityRecord(ctx, c.account.ID, rec)
	})
	if err != nil {
		return entity.Enrollment{}, err
	}

	err = c.commit(version, func() {
		c.secret = text
		c.enabled = true
		c.guard.Reset()
	})
	if err != nil {
		return entity.Enrollment{}, err
	}

	return entity.Enrollment{
		PlainSecret:     text,
		Base32Secret:    b32,
		ProvisioningURI: uri,
	}, nil
}

// Validate checks a code against the enrolled secret. A session without a
// secret fails every attempt.
func (c *Controller) Validate(_ context.Context, code string) (entity.ValidationResult, error) {
	c.touch()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return entity.ValidationResult{}, entity.ErrSessionClosed
	}
	if c.guard.LockedOut() {
		return entity.ValidationResult{Outcome: entity.OutcomeLockedOut}, nil
	}

	ok := false
	if c.enabled && c.secret != "" {
		var err error
		ok, err = c.engine.Validate([]byte(c.secret), c.spec.Algorithm, code, c.clock.Now())
		if err != nil {
			return entity.ValidationResult{}, err
		}
	}

	if ok {
		c.guard.Success()
		return entity.ValidationResult{Outcome: entity.OutcomeAccepted}, nil
	}

	if c.guard.Failure() == entity.SignalFatal {
		return entity.ValidationResult{Outcome: entity.OutcomeLockedOut}, nil
	}

	return entity.ValidationResult{
		Outcome:          entity.OutcomeRejected,
		RetriesRemaining: c.guard.Remaining(),
	}, nil
}

// SetAlgorithm switches the active algorithm. The current secret is dropped
// and the second factor stays disabled until the next enrollment.
func (c *Controller) SetAlgorithm(ctx context.Context, alg otp.Algorithm) error {
	c.touch()

	spec, err := otp.Lookup(alg)
	if err != nil {
		return err
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	version, _, err := c.snapshot()
	if err != nil {
		return err
	}

	if err := c.save(ctx, entity.SecurityRecord{Algorithm: spec, UpdatedAt: c.clock.Now()}); err != nil {
		return err
	}

	return c.commit(version, func() {
		c.spec = spec
		c.secret = ""
		c.enabled = false
	})
}

// Disable clears the secret, restores the default algorithm and turns the
// second factor off.
func (c *Controller) Disable(ctx context.Context) error {
	c.touch()

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	version, _, err := c.snapshot()
	if err != nil {
		return err
	}

	spec := otp.Default()
	if err := c.save(ctx, entity.SecurityRecord{Algorithm: spec, UpdatedAt: c.clock.Now()}); err != nil {
		return err
	}

	return c.commit(version, func() {
		c.spec = spec
		c.secret = ""
		c.enabled = false
		c.guard.Reset()
	})
}

// CurrentToken returns the code of the current time step.
func (c *Controller) CurrentToken() (entity.Token, error) {
	c.mu.Lock()
	secret, spec, enabled := c.secret, c.spec, c.enabled
	closed := c.closed.Load()
	c.mu.Unlock()

	if closed {
		return entity.Token{}, entity.ErrSessionClosed
	}
	if !enabled || secret == "" {
		return entity.Token{}, entity.ErrNotEnrolled
	}

	now := c.clock.Now()
	counter := c.engine.Counter(now)
	code, err := c.engine.Generate([]byte(secret), spec.Algorithm, counter)
	if err != nil {
		return entity.Token{}, err
	}

	return entity.Token{
		Code:      code,
		Counter:   counter,
		ExpiresIn: c.engine.Remaining(now),
	}, nil
}

// Tokens streams the current token immediately and on every heartbeat. Each
// emission is computed from scratch. Nothing is sent while the session is not
// enrolled. The channel is closed when ctx is done or the session closes.
func (c *Controller) Tokens(ctx context.Context) <-chan entity.Token {
	out := make(chan entity.Token, 1)
	ticker := c.clock.NewTicker(c.heartbeat)

	go func() {
		defer close(out)
		defer ticker.Stop()

		if !c.emit(ctx, out) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-ticker.C():
				if !c.emit(ctx, out) {
					return
				}
			}
		}
	}()

	return out
}

func (c *Controller) emit(ctx context.Context, out chan<- entity.Token) bool {
	tok, err := c.CurrentToken()
	if errors.Is(err, entity.ErrSessionClosed) {
		return false
	}
	if err != nil {
		return true
	}

	select {
	case out <- tok:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}

// ProvisioningURI rebuilds the pairing URI of the enrolled secret. It returns
// an empty string when nothing is enrolled.
func (c *Controller) ProvisioningURI() (string, error) {
	c.mu.Lock()
	secret, spec, enabled := c.secret, c.spec, c.enabled
	c.mu.Unlock()

	if !enabled || secret == "" {
		return "", nil
	}

	return otp.BuildURI(otp.URIParams{
		Account:   c.label(),
		Issuer:    c.issuer,
		Secret:    otp.EncodeSecret([]byte(secret)),
		Algorithm: spec.Algorithm,
	})
}

// Status returns a snapshot of the session.
func (c *Controller) Status() entity.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return entity.Status{
		SessionID: c.id,
		AccountID: c.account.ID,
		Enabled:   c.enabled,
		Enrolled:  c.secret != "",
		Algorithm: c.spec,
		Failures:  c.guard.Failures(),
		LockedOut: c.guard.LockedOut(),
	}
}

// Close discards the secret and the attempt state and stops token streams.
// It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return
	}

	c.closed.Store(true)
	c.secret = ""
	c.enabled = false
	c.guard.Reset()
	close(c.done)
}

func (c *Controller) label() string {
	if c.account.Label != "" {
		return c.account.Label
	}
	return c.account.ID
}

func (c *Controller) save(ctx context.Context, rec entity.SecurityRecord) error {
	b := retry.WithMaxRetries(c.retries, retry.WithCappedDuration(2*time.Second, retry.NewFibonacci(c.backoff)))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.repo.SaveSecurityRecord(ctx, c.account.ID, rec); err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.WarnContext(ctx, "failed to save security record, retrying", "account_id", c.account.ID, "session_id", c.id, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", mfa.ErrPersistFailed, err)
	}
	return nil
}
