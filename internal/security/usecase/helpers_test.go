package usecase

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/config"
	"github.com/shandysiswandi/mynotes/internal/pkg/goroutine"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/jwt"
	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
	"github.com/shandysiswandi/mynotes/internal/pkg/validator"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// t0 is the start of a time step.
var t0 = time.Unix(1_700_000_010, 0).UTC()

type memRecords struct {
	mu      sync.Mutex
	records map[string]entity.SecurityRecord
	fail    int
	saves   int
}

func newMemRecords() *memRecords {
	return &memRecords{records: map[string]entity.SecurityRecord{}}
}

func (m *memRecords) LoadSecurityRecord(_ context.Context, accountID string) (entity.SecurityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[accountID]
	if !ok {
		return entity.NewSecurityRecord(), nil
	}
	return rec, nil
}

func (m *memRecords) SaveSecurityRecord(_ context.Context, accountID string, rec entity.SecurityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.fail > 0 {
		m.fail--
		return errStoreDown
	}
	m.records[accountID] = rec
	return nil
}

func (m *memRecords) failNext(n int) {
	m.mu.Lock()
	m.fail = n
	m.mu.Unlock()
}

func (m *memRecords) get(accountID string) (entity.SecurityRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[accountID]
	return rec, ok
}

type memEvents struct {
	lockouts chan entity.LockoutEvent
	changes  chan entity.SecondFactorChanged
}

func newMemEvents() *memEvents {
	return &memEvents{
		lockouts: make(chan entity.LockoutEvent, 8),
		changes:  make(chan entity.SecondFactorChanged, 8),
	}
}

func (m *memEvents) PublishLockout(_ context.Context, evt entity.LockoutEvent) error {
	m.lockouts <- evt
	return nil
}

func (m *memEvents) PublishSecondFactorChanged(_ context.Context, evt entity.SecondFactorChanged) error {
	m.changes <- evt
	return nil
}

func newTestVault() *mfa.Vault {
	enc := mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{7}, 32)})
	return mfa.NewVault(enc, mfa.WithPersistRetry(1, time.Millisecond))
}

type testEnv struct {
	uc      *Usecase
	clock   *clock.Manual
	records *memRecords
	events  *memEvents
	vault   *mfa.Vault
	engine  *otp.Engine
}

func newTestEnv(t *testing.T, yaml string) testEnv {
	t.Helper()
	return newTestEnvWith(t, yaml, instrument.NewNoop())
}

func newTestEnvWith(t *testing.T, yaml string, ins instrument.Instrumentation) testEnv {
	t.Helper()

	if yaml == "" {
		yaml = `
mfa:
  issuer: MyNotes
modules:
  security:
    max_attempts: 3
    session_idle_minutes: 15
    single_session: true
    token_heartbeat_seconds: 1
    persist_retries: 1
    persist_backoff_ms: 1
`
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	env := testEnv{
		clock:   clock.NewManual(t0),
		records: newMemRecords(),
		events:  newMemEvents(),
		vault:   newTestVault(),
		engine:  otp.NewEngine(),
	}

	gm := goroutine.NewManager(10)
	t.Cleanup(func() { _ = gm.Wait() })

	env.uc = New(Dependency{
		RepoRecord:    env.records,
		RepoMessaging: env.events,
		Identity:      JWTIdentity{},
		Vault:         env.vault,
		Engine:        env.engine,
		Validator:     v,
		Config:        cfg,
		Clock:         env.clock,
		UUID:          uid.NewUUID(),
		Instrument:    ins,
		Goroutine:     gm,
	})
	t.Cleanup(env.uc.Shutdown)

	return env
}

func asAccount(id string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{AccountID: id, AccountLabel: id + "@example.com"})
}

func ptr(s string) *string { return &s }

func (e testEnv) code(t *testing.T, secret string, alg otp.Algorithm, at time.Time) string {
	t.Helper()
	code, err := e.engine.GenerateAt([]byte(secret), alg, at)
	require.NoError(t, err)
	return code
}

// wrongCode returns a well formed code that does not match any of the three
// accepted steps around at.
func (e testEnv) wrongCode(t *testing.T, secret string, alg otp.Algorithm, at time.Time) string {
	t.Helper()
	valid := map[string]bool{}
	for _, d := range []time.Duration{-otp.Period * time.Second, 0, otp.Period * time.Second} {
		valid[e.code(t, secret, alg, at.Add(d))] = true
	}
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[c] {
			return c
		}
	}
	t.Fatal("no wrong code found")
	return ""
}
