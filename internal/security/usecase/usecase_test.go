package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code goerror.Code) *goerror.Error {
	t.Helper()

	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "want goerror, got %v", err)
	assert.Equal(t, code, gerr.Code())

	return gerr
}

func TestUsecase_OpenSession(t *testing.T) {
	t.Run("requires an account", func(t *testing.T) {
		env := newTestEnv(t, "")

		_, err := env.uc.OpenSession(context.Background())
		requireCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("fresh account", func(t *testing.T) {
		env := newTestEnv(t, "")

		st, err := env.uc.OpenSession(asAccount("acc-1"))
		require.NoError(t, err)

		assert.NotEmpty(t, st.SessionID)
		assert.Equal(t, "acc-1", st.AccountID)
		assert.False(t, st.Enabled)
		assert.Equal(t, otp.Default(), st.Algorithm)
	})

	t.Run("restores an enrolled secret", func(t *testing.T) {
		env := newTestEnv(t, "")
		ctx := asAccount("acc-1")

		first, err := env.uc.OpenSession(ctx)
		require.NoError(t, err)
		out, err := env.uc.Enroll(ctx, EnrollInput{SessionID: first.SessionID})
		require.NoError(t, err)

		second, err := env.uc.OpenSession(ctx)
		require.NoError(t, err)
		assert.True(t, second.Enabled)
		assert.True(t, second.Enrolled)

		_, err = env.uc.Validate(ctx, ValidateInput{SessionID: second.SessionID, Code: env.code(t, out.PlainSecret, otp.SHA256, t0)})
		require.NoError(t, err)
	})

	t.Run("undecryptable secret is not enrolled", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.records.records["acc-1"] = entity.SecurityRecord{
			SecondFactorEnabled: true,
			Algorithm:           otp.Default(),
			EncryptedSecret:     []byte("not a valid blob at all"),
		}

		st, err := env.uc.OpenSession(asAccount("acc-1"))
		require.NoError(t, err)
		assert.False(t, st.Enabled)
		assert.False(t, st.Enrolled)
	})

	t.Run("secret that does not fit its algorithm is not enrolled", func(t *testing.T) {
		env := newTestEnv(t, "")
		blob, err := env.vault.Seal(context.Background(), "acc-1", otp.EncodeSecret([]byte("ABCDEFGHIJKLMNOP")))
		require.NoError(t, err)
		env.records.records["acc-1"] = entity.SecurityRecord{
			SecondFactorEnabled: true,
			Algorithm:           otp.Default(),
			EncryptedSecret:     blob,
		}

		st, err := env.uc.OpenSession(asAccount("acc-1"))
		require.NoError(t, err)
		assert.False(t, st.Enrolled)
	})

	t.Run("single session replaces the previous one", func(t *testing.T) {
		env := newTestEnv(t, "")
		ctx := asAccount("acc-1")

		first, err := env.uc.OpenSession(ctx)
		require.NoError(t, err)
		other, err := env.uc.OpenSession(asAccount("acc-2"))
		require.NoError(t, err)
		second, err := env.uc.OpenSession(ctx)
		require.NoError(t, err)

		_, err = env.uc.SessionStatus(ctx, SessionInput{SessionID: first.SessionID})
		requireCode(t, err, goerror.CodeNotFound)
		_, err = env.uc.SessionStatus(ctx, SessionInput{SessionID: second.SessionID})
		require.NoError(t, err)
		_, err = env.uc.SessionStatus(asAccount("acc-2"), SessionInput{SessionID: other.SessionID})
		require.NoError(t, err)
	})
}

func TestUsecase_SessionOwnership(t *testing.T) {
	env := newTestEnv(t, "")

	st, err := env.uc.OpenSession(asAccount("acc-1"))
	require.NoError(t, err)

	_, err = env.uc.SessionStatus(asAccount("acc-2"), SessionInput{SessionID: st.SessionID})
	requireCode(t, err, goerror.CodeNotFound)

	err = env.uc.CloseSession(asAccount("acc-2"), SessionInput{SessionID: st.SessionID})
	requireCode(t, err, goerror.CodeNotFound)

	_, err = env.uc.SessionStatus(asAccount("acc-1"), SessionInput{SessionID: "not-a-uuid"})
	requireCode(t, err, goerror.CodeInvalidInput)
}

func TestUsecase_CloseSession(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := asAccount("acc-1")

	st, err := env.uc.OpenSession(ctx)
	require.NoError(t, err)

	require.NoError(t, env.uc.CloseSession(ctx, SessionInput{SessionID: st.SessionID}))

	err = env.uc.CloseSession(ctx, SessionInput{SessionID: st.SessionID})
	requireCode(t, err, goerror.CodeNotFound)
}

func TestUsecase_EnrollAndValidate(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := asAccount("acc-1")

	st, err := env.uc.OpenSession(ctx)
	require.NoError(t, err)

	t.Run("empty custom secret", func(t *testing.T) {
		_, err := env.uc.Enroll(ctx, EnrollInput{SessionID: st.SessionID, CustomSecret: ptr("")})
		gerr := requireCode(t, err, goerror.CodeInvalidInput)
		assert.Contains(t, gerr.Fields(), "custom_secret")
	})

	t.Run("custom secret outside the alphabet", func(t *testing.T) {
		_, err := env.uc.Enroll(ctx, EnrollInput{SessionID: st.SessionID, CustomSecret: ptr("ABCDEFGHIJKLMNOPQRSTUVWXYZ234561")})
		requireCode(t, err, goerror.CodeInvalidInput)
	})

	out, err := env.uc.Enroll(ctx, EnrollInput{SessionID: st.SessionID})
	require.NoError(t, err)

	evt := <-env.events.changes
	assert.Equal(t, entity.SecondFactorChanged{AccountID: "acc-1", Enabled: true, Algorithm: otp.SHA256, OccurredAt: t0}, evt)

	t.Run("malformed code is an input error and not counted", func(t *testing.T) {
		_, err := env.uc.Validate(ctx, ValidateInput{SessionID: st.SessionID, Code: "12a456"})
		requireCode(t, err, goerror.CodeInvalidInput)

		status, err := env.uc.SessionStatus(ctx, SessionInput{SessionID: st.SessionID})
		require.NoError(t, err)
		assert.Equal(t, 0, status.Failures)
	})

	t.Run("accepted", func(t *testing.T) {
		res, err := env.uc.Validate(ctx, ValidateInput{SessionID: st.SessionID, Code: env.code(t, out.PlainSecret, otp.SHA256, t0)})
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeAccepted, res.Outcome)
	})

	t.Run("rejected then locked out", func(t *testing.T) {
		wrong := env.wrongCode(t, out.PlainSecret, otp.SHA256, t0)

		_, err := env.uc.Validate(ctx, ValidateInput{SessionID: st.SessionID, Code: wrong})
		gerr := requireCode(t, err, goerror.CodeUnauthorized)
		assert.Equal(t, "2", gerr.Fields()["retries_remaining"])

		_, err = env.uc.Validate(ctx, ValidateInput{SessionID: st.SessionID, Code: wrong})
		gerr = requireCode(t, err, goerror.CodeUnauthorized)
		assert.Equal(t, "1", gerr.Fields()["retries_remaining"])

		_, err = env.uc.Validate(ctx, ValidateInput{SessionID: st.SessionID, Code: wrong})
		gerr = requireCode(t, err, goerror.CodeLocked)
		assert.Equal(t, 423, gerr.StatusCode())

		select {
		case lock := <-env.events.lockouts:
			assert.Equal(t, entity.LockoutEvent{AccountID: "acc-1", SessionID: st.SessionID, Failures: 3, OccurredAt: t0}, lock)
		case <-time.After(time.Second):
			t.Fatal("lockout event not published")
		}

		_, err = env.uc.Validate(ctx, ValidateInput{SessionID: st.SessionID, Code: env.code(t, out.PlainSecret, otp.SHA256, t0)})
		requireCode(t, err, goerror.CodeNotFound)
	})
}

func TestUsecase_SetAlgorithmAndDisable(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := asAccount("acc-1")

	st, err := env.uc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = env.uc.Enroll(ctx, EnrollInput{SessionID: st.SessionID})
	require.NoError(t, err)
	<-env.events.changes

	_, err = env.uc.SetAlgorithm(ctx, SetAlgorithmInput{SessionID: st.SessionID, Algorithm: "MD5"})
	requireCode(t, err, goerror.CodeInvalidInput)

	got, err := env.uc.SetAlgorithm(ctx, SetAlgorithmInput{SessionID: st.SessionID, Algorithm: "HmacSHA512"})
	require.NoError(t, err)
	assert.Equal(t, otp.SHA512, got.Algorithm.Algorithm)
	assert.False(t, got.Enabled)
	assert.Equal(t, entity.SecondFactorChanged{AccountID: "acc-1", Algorithm: otp.SHA512, OccurredAt: t0}, <-env.events.changes)

	_, err = env.uc.CurrentToken(ctx, SessionInput{SessionID: st.SessionID})
	requireCode(t, err, goerror.CodeNotFound)

	require.NoError(t, env.uc.Disable(ctx, SessionInput{SessionID: st.SessionID}))
	assert.Equal(t, entity.SecondFactorChanged{AccountID: "acc-1", Algorithm: otp.SHA256, OccurredAt: t0}, <-env.events.changes)

	rec, _ := env.records.get("acc-1")
	assert.Equal(t, otp.Default(), rec.Algorithm)
	assert.False(t, rec.SecondFactorEnabled)
}

func TestUsecase_PersistenceFailureIsServerError(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := asAccount("acc-1")

	st, err := env.uc.OpenSession(ctx)
	require.NoError(t, err)

	env.records.failNext(10)
	_, err = env.uc.Enroll(ctx, EnrollInput{SessionID: st.SessionID})
	requireCode(t, err, goerror.CodeInternal)

	status, err := env.uc.SessionStatus(ctx, SessionInput{SessionID: st.SessionID})
	require.NoError(t, err)
	assert.False(t, status.Enabled)
}

func TestUsecase_TokensAndMatrix(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := asAccount("acc-1")

	st, err := env.uc.OpenSession(ctx)
	require.NoError(t, err)

	m, err := env.uc.ProvisioningMatrix(ctx, SessionInput{SessionID: st.SessionID})
	require.NoError(t, err)
	assert.Nil(t, m)

	out, err := env.uc.Enroll(ctx, EnrollInput{SessionID: st.SessionID})
	require.NoError(t, err)

	m, err = env.uc.ProvisioningMatrix(ctx, SessionInput{SessionID: st.SessionID})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, otp.MatrixSize, m.Size)

	tok, err := env.uc.CurrentToken(ctx, SessionInput{SessionID: st.SessionID})
	require.NoError(t, err)
	assert.Equal(t, env.code(t, out.PlainSecret, otp.SHA256, t0), tok.Code)

	streamCtx, cancel := context.WithCancel(ctx)
	tokens, err := env.uc.StreamTokens(streamCtx, SessionInput{SessionID: st.SessionID})
	require.NoError(t, err)
	assert.Equal(t, tok.Code, (<-tokens).Code)

	require.NoError(t, env.uc.CloseSession(ctx, SessionInput{SessionID: st.SessionID}))
	for range tokens {
	}
	cancel()
}

func TestUsecase_Algorithms(t *testing.T) {
	env := newTestEnv(t, "")

	specs := env.uc.Algorithms(context.Background())
	assert.Equal(t, []otp.AlgorithmSpec{
		{Algorithm: otp.SHA1, SecretLength: 16},
		{Algorithm: otp.SHA256, SecretLength: 32},
		{Algorithm: otp.SHA512, SecretLength: 64},
	}, specs)
}

func TestUsecase_ReapIdleSessions(t *testing.T) {
	env := newTestEnv(t, "")

	idle, err := env.uc.OpenSession(asAccount("acc-1"))
	require.NoError(t, err)

	env.clock.Advance(10 * time.Minute)
	busy, err := env.uc.OpenSession(asAccount("acc-2"))
	require.NoError(t, err)

	env.clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, env.uc.ReapIdleSessions(context.Background()))

	_, err = env.uc.SessionStatus(asAccount("acc-1"), SessionInput{SessionID: idle.SessionID})
	requireCode(t, err, goerror.CodeNotFound)
	_, err = env.uc.SessionStatus(asAccount("acc-2"), SessionInput{SessionID: busy.SessionID})
	require.NoError(t, err)
}

func TestUsecase_RunReaper(t *testing.T) {
	env := newTestEnv(t, "")

	st, err := env.uc.OpenSession(asAccount("acc-1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.uc.RunReaper(ctx, time.Minute) }()

	require.Eventually(t, func() bool { return env.clock.Tickers() > 0 }, time.Second, time.Millisecond)
	env.clock.Advance(20 * time.Minute)

	require.Eventually(t, func() bool {
		_, err := env.uc.SessionStatus(asAccount("acc-1"), SessionInput{SessionID: st.SessionID})
		return err != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
