package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, env testEnv, rec entity.SecurityRecord, secret string) *Controller {
	t.Helper()
	return newTestControllerWith(t, env, env.records, rec, secret)
}

func newTestControllerWith(t *testing.T, env testEnv, repo repoRecord, rec entity.SecurityRecord, secret string) *Controller {
	t.Helper()

	c := NewController(ControllerConfig{
		SessionID:      "0190f5c3-0000-7000-8000-000000000001",
		Account:        entity.Account{ID: "acc-1", Label: "jane@example.com"},
		Issuer:         "MyNotes",
		MaxAttempts:    3,
		Heartbeat:      time.Second,
		PersistRetries: 1,
		PersistBackoff: time.Millisecond,
	}, rec, secret, env.engine, env.vault, repo, env.clock)
	t.Cleanup(c.Close)

	return c
}

func TestController_Enroll(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	t.Run("generated secret", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")

		out, err := c.Enroll(ctx, nil)
		require.NoError(t, err)

		assert.Len(t, out.PlainSecret, 32)
		assert.True(t, otp.IsBase32Text(out.PlainSecret))
		assert.Equal(t, otp.EncodeSecret([]byte(out.PlainSecret)), out.Base32Secret)
		assert.Contains(t, out.ProvisioningURI, "otpauth://totp/MyNotes:jane@example.com?secret="+out.Base32Secret)
		assert.Contains(t, out.ProvisioningURI, "&algorithm=SHA256&digits=6&period=30")

		st := c.Status()
		assert.True(t, st.Enabled)
		assert.True(t, st.Enrolled)

		rec, ok := env.records.get("acc-1")
		require.True(t, ok)
		assert.True(t, rec.SecondFactorEnabled)
		sealed, ok := env.vault.Retrieve(ctx, "acc-1", rec.EncryptedSecret)
		require.True(t, ok)
		assert.Equal(t, out.Base32Secret, sealed)
	})

	t.Run("custom secret is normalized", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")
		custom := "abcdefghijklmnopqrstuvwxyz234567"

		out, err := c.Enroll(ctx, &custom)
		require.NoError(t, err)
		assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567", out.PlainSecret)
	})

	t.Run("invalid custom secrets", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")

		for _, custom := range []string{"", "ABC", "ABCDEFGHIJKLMNOPQRSTUVWXYZ23456!", "ABCDEFGHIJKLMNOPQRSTUVWXYZ234561"} {
			_, err := c.Enroll(ctx, &custom)
			assert.ErrorIs(t, err, otp.ErrInvalidSecretFormat, custom)
		}
		assert.False(t, c.Status().Enabled)
	})

	t.Run("persistence failure keeps previous state", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")
		env.records.failNext(5)
		t.Cleanup(func() { env.records.failNext(0) })

		_, err := c.Enroll(ctx, nil)
		assert.ErrorIs(t, err, mfa.ErrPersistFailed)

		st := c.Status()
		assert.False(t, st.Enabled)
		assert.False(t, st.Enrolled)
	})

	t.Run("retried persistence succeeds", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")
		env.records.failNext(1)

		_, err := c.Enroll(ctx, nil)
		require.NoError(t, err)
		assert.True(t, c.Status().Enabled)
	})
}

func TestController_Validate(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	secret := "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	rec := entity.SecurityRecord{SecondFactorEnabled: true, Algorithm: otp.Default()}

	t.Run("accepts current and neighbouring steps", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)

		for _, d := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
			res, err := c.Validate(ctx, env.code(t, secret, otp.SHA256, t0.Add(d)))
			require.NoError(t, err)
			assert.Equal(t, entity.OutcomeAccepted, res.Outcome)
		}
	})

	t.Run("rejects two steps away", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)

		res, err := c.Validate(ctx, env.code(t, secret, otp.SHA256, t0.Add(-60*time.Second)))
		require.NoError(t, err)
		assert.Equal(t, entity.ValidationResult{Outcome: entity.OutcomeRejected, RetriesRemaining: 2}, res)
	})

	t.Run("three failures lock out", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)
		wrong := env.wrongCode(t, secret, otp.SHA256, t0)

		res, _ := c.Validate(ctx, wrong)
		assert.Equal(t, entity.ValidationResult{Outcome: entity.OutcomeRejected, RetriesRemaining: 2}, res)
		res, _ = c.Validate(ctx, wrong)
		assert.Equal(t, entity.ValidationResult{Outcome: entity.OutcomeRejected, RetriesRemaining: 1}, res)
		res, _ = c.Validate(ctx, wrong)
		assert.Equal(t, entity.OutcomeLockedOut, res.Outcome)

		res, _ = c.Validate(ctx, env.code(t, secret, otp.SHA256, t0))
		assert.Equal(t, entity.OutcomeLockedOut, res.Outcome)
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)
		wrong := env.wrongCode(t, secret, otp.SHA256, t0)

		_, _ = c.Validate(ctx, wrong)
		_, _ = c.Validate(ctx, wrong)
		res, _ := c.Validate(ctx, env.code(t, secret, otp.SHA256, t0))
		assert.Equal(t, entity.OutcomeAccepted, res.Outcome)
		assert.Equal(t, 0, c.Status().Failures)

		res, _ = c.Validate(ctx, wrong)
		assert.Equal(t, 2, res.RetriesRemaining)
	})

	t.Run("not enrolled fails", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")

		res, err := c.Validate(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeRejected, res.Outcome)
	})

	t.Run("closed session", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)
		c.Close()

		_, err := c.Validate(ctx, "123456")
		assert.ErrorIs(t, err, entity.ErrSessionClosed)
	})
}

func TestController_SetAlgorithmInvalidatesSecret(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	c := newTestController(t, env, entity.NewSecurityRecord(), "")

	out, err := c.Enroll(ctx, nil)
	require.NoError(t, err)
	valid := env.code(t, out.PlainSecret, otp.SHA256, t0)

	require.NoError(t, c.SetAlgorithm(ctx, otp.SHA512))

	st := c.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.Enrolled)
	assert.Equal(t, otp.AlgorithmSpec{Algorithm: otp.SHA512, SecretLength: 64}, st.Algorithm)

	res, err := c.Validate(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeRejected, res.Outcome)

	rec, _ := env.records.get("acc-1")
	assert.False(t, rec.SecondFactorEnabled)
	assert.False(t, rec.HasSecret())
	assert.Equal(t, otp.SHA512, rec.Algorithm.Algorithm)

	out, err = c.Enroll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, out.PlainSecret, 64)
	assert.Contains(t, out.ProvisioningURI, "algorithm=SHA512")

	res, err = c.Validate(ctx, env.code(t, out.PlainSecret, otp.SHA512, t0))
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeAccepted, res.Outcome)

	assert.ErrorIs(t, c.SetAlgorithm(ctx, otp.Algorithm("MD5")), otp.ErrUnknownAlgorithm)
}

func TestController_SetAlgorithmPersistFailure(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	c := newTestController(t, env, entity.NewSecurityRecord(), "")

	_, err := c.Enroll(ctx, nil)
	require.NoError(t, err)

	env.records.failNext(5)
	t.Cleanup(func() { env.records.failNext(0) })

	assert.ErrorIs(t, c.SetAlgorithm(ctx, otp.SHA1), mfa.ErrPersistFailed)

	st := c.Status()
	assert.True(t, st.Enabled)
	assert.Equal(t, otp.SHA256, st.Algorithm.Algorithm)
}

func TestController_Disable(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	c := newTestController(t, env, entity.NewSecurityRecord(), "")

	require.NoError(t, c.SetAlgorithm(ctx, otp.SHA1))
	_, err := c.Enroll(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, c.Disable(ctx))

	st := c.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.Enrolled)
	assert.Equal(t, otp.Default(), st.Algorithm)

	rec, _ := env.records.get("acc-1")
	assert.Equal(t, entity.SecurityRecord{Algorithm: otp.Default(), UpdatedAt: t0}, rec)

	_, err = c.CurrentToken()
	assert.ErrorIs(t, err, entity.ErrNotEnrolled)
}

func TestController_Tokens(t *testing.T) {
	env := newTestEnv(t, "")
	secret := "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	rec := entity.SecurityRecord{SecondFactorEnabled: true, Algorithm: otp.Default()}

	t.Run("emits on start and every heartbeat", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tokens := c.Tokens(ctx)

		first := <-tokens
		assert.Equal(t, env.code(t, secret, otp.SHA256, t0), first.Code)
		assert.Equal(t, uint64(t0.Unix()/30), first.Counter)
		assert.Equal(t, 30*time.Second, first.ExpiresIn)

		env.clock.Advance(time.Second)
		second := <-tokens
		assert.Equal(t, first.Code, second.Code)
		assert.Equal(t, 29*time.Second, second.ExpiresIn)

		env.clock.Advance(29 * time.Second)
		third := <-tokens
		assert.Equal(t, first.Counter+1, third.Counter)
		assert.Equal(t, env.code(t, secret, otp.SHA256, t0.Add(30*time.Second)), third.Code)

		cancel()
		for range tokens {
		}
	})

	t.Run("closes when the session closes", func(t *testing.T) {
		c := newTestController(t, env, rec, secret)
		tokens := c.Tokens(context.Background())
		<-tokens

		c.Close()

		assert.Eventually(t, func() bool {
			select {
			case _, ok := <-tokens:
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("nothing while not enrolled", func(t *testing.T) {
		c := newTestController(t, env, entity.NewSecurityRecord(), "")
		ctx, cancel := context.WithCancel(context.Background())
		tokens := c.Tokens(ctx)

		env.clock.Advance(time.Second)
		select {
		case tok := <-tokens:
			t.Fatalf("unexpected token %v", tok)
		case <-time.After(20 * time.Millisecond):
		}

		cancel()
		for range tokens {
		}
	})
}

func TestController_Close(t *testing.T) {
	env := newTestEnv(t, "")
	c := newTestController(t, env, entity.SecurityRecord{SecondFactorEnabled: true, Algorithm: otp.Default()}, "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567")

	c.Close()
	c.Close()

	assert.True(t, c.Closed())
	st := c.Status()
	assert.False(t, st.Enrolled)
	assert.False(t, st.Enabled)

	_, err := c.Enroll(context.Background(), nil)
	assert.ErrorIs(t, err, entity.ErrSessionClosed)
	_, err = c.CurrentToken()
	assert.ErrorIs(t, err, entity.ErrSessionClosed)
}

// gatedRecords blocks the first save until release is closed.
type gatedRecords struct {
	*memRecords
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRecords(m *memRecords) *gatedRecords {
	return &gatedRecords{memRecords: m, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRecords) SaveSecurityRecord(ctx context.Context, accountID string, rec entity.SecurityRecord) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memRecords.SaveSecurityRecord(ctx, accountID, rec)
}

func TestController_OverlappingWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("set algorithm waits for enroll and both land in order", func(t *testing.T) {
		env := newTestEnv(t, "")
		repo := newGatedRecords(env.records)
		c := newTestControllerWith(t, env, repo, entity.NewSecurityRecord(), "")

		enrolled := make(chan error, 1)
		go func() {
			_, err := c.Enroll(ctx, nil)
			enrolled <- err
		}()
		<-repo.entered

		switched := make(chan error, 1)
		go func() { switched <- c.SetAlgorithm(ctx, otp.SHA512) }()

		select {
		case err := <-switched:
			t.Fatalf("set algorithm finished while enroll was persisting: %v", err)
		case <-time.After(50 * time.Millisecond):
		}

		close(repo.release)
		require.NoError(t, <-enrolled)
		require.NoError(t, <-switched)

		st := c.Status()
		assert.False(t, st.Enabled)
		assert.False(t, st.Enrolled)
		assert.Equal(t, otp.SHA512, st.Algorithm.Algorithm)

		rec, ok := env.records.get("acc-1")
		require.True(t, ok)
		assert.False(t, rec.SecondFactorEnabled)
		assert.False(t, rec.HasSecret())
		assert.Equal(t, otp.SHA512, rec.Algorithm.Algorithm)
	})

	t.Run("waiting write gives up on cancel and close", func(t *testing.T) {
		env := newTestEnv(t, "")
		repo := newGatedRecords(env.records)
		c := newTestControllerWith(t, env, repo, entity.NewSecurityRecord(), "")

		enrolled := make(chan error, 1)
		go func() {
			_, err := c.Enroll(ctx, nil)
			enrolled <- err
		}()
		<-repo.entered

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, c.Disable(canceled), context.Canceled)

		disabled := make(chan error, 1)
		go func() { disabled <- c.Disable(ctx) }()

		c.Close()
		assert.ErrorIs(t, <-disabled, entity.ErrSessionClosed)

		close(repo.release)
		assert.ErrorIs(t, <-enrolled, entity.ErrSessionClosed)
	})
}
