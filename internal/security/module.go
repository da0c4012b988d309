package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/config"
	"github.com/shandysiswandi/mynotes/internal/pkg/goroutine"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/messaging"
	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/pkg/router"
	"github.com/shandysiswandi/mynotes/internal/pkg/storage"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
	"github.com/shandysiswandi/mynotes/internal/pkg/validator"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/shandysiswandi/mynotes/internal/security/inbound"
	"github.com/shandysiswandi/mynotes/internal/security/outbound/db"
	"github.com/shandysiswandi/mynotes/internal/security/outbound/document"
	"github.com/shandysiswandi/mynotes/internal/security/outbound/kv"
	"github.com/shandysiswandi/mynotes/internal/security/outbound/mq"
	"github.com/shandysiswandi/mynotes/internal/security/usecase"
)

// Record stores selectable with modules.security.record_store.
const (
	RecordStoreDB       = "db"
	RecordStoreKV       = "kv"
	RecordStoreDocument = "document"
)

// Key sources selectable with mfa.key_source.
const (
	KeySourceStatic  = "static"
	KeySourceAccount = "account"
)

var (
	ErrUnknownRecordStore = errors.New("security: unknown record store")
	ErrUnknownKeySource   = errors.New("security: unknown key source")
	ErrMissingResource    = errors.New("security: required resource not configured")
)

type Dependency struct {
	Ctx       context.Context
	DBConn    *pgxpool.Pool
	CacheConn *redis.Client
	Storage   storage.Storage
	// Messaging is optional; without it no events are published.
	Messaging messaging.Messaging

	MasterEncryptor mfa.Encryptor              `validate:"required"`
	Engine          *otp.Engine                `validate:"required"`
	Router          *router.Router             `validate:"required"`
	Goroutine       *goroutine.Manager         `validate:"required"`
	Config          config.Config              `validate:"required"`
	Instrument      instrument.Instrumentation `validate:"required"`
	UUID            uid.Generator              `validate:"required"`
	Clock           clock.Clocker              `validate:"required"`
	Validator       validator.Validator        `validate:"required"`
}

// Module is the running security module.
type Module struct {
	uc *usecase.Usecase
}

func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	var pg *db.DB
	if dep.DBConn != nil {
		pg = db.NewDB(dep.DBConn, dep.MasterEncryptor, dep.Clock, dep.Instrument)
		if dep.Config.GetBool("modules.security.db.auto_migrate") && dep.Ctx != nil {
			if err := pg.Migrate(dep.Ctx); err != nil {
				return nil, fmt.Errorf("security: migrate: %w", err)
			}
		}
	}

	repoRecord, err := newRecordStore(dep, pg)
	if err != nil {
		return nil, err
	}

	enc, err := newEncryptor(dep, pg)
	if err != nil {
		return nil, err
	}

	vault := mfa.NewVault(enc, mfa.WithPersistRetry(
		dep.Config.GetUint64("modules.security.persist_retries"),
		time.Duration(dep.Config.GetInt("modules.security.persist_backoff_ms"))*time.Millisecond,
	))

	var repoMsg *mq.Messaging
	if dep.Messaging != nil {
		repoMsg = mq.NewMessaging(dep.Messaging, mq.Topics{
			Lockout:             dep.Config.GetString("modules.security.topics.lockout"),
			SecondFactorChanged: dep.Config.GetString("modules.security.topics.second_factor_changed"),
		}, dep.Instrument)
	}

	udep := usecase.Dependency{
		RepoRecord: repoRecord,
		Identity:   usecase.JWTIdentity{},
		Vault:      vault,
		Engine:     dep.Engine,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Clock:      dep.Clock,
		UUID:       dep.UUID,
		Instrument: dep.Instrument,
		Goroutine:  dep.Goroutine,
	}
	if repoMsg != nil {
		udep.RepoMessaging = repoMsg
	}
	uc := usecase.New(udep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	if dep.Ctx != nil {
		interval := dep.Config.GetSecond("modules.security.reaper_interval_seconds")
		dep.Goroutine.Go(dep.Ctx, "security.reaper", func(ctx context.Context) error {
			return uc.RunReaper(ctx, interval)
		})
	}

	slog.Info("security module ready", "record_store", dep.Config.GetString("modules.security.record_store"), "key_source", dep.Config.GetString("mfa.key_source"))

	return &Module{uc: uc}, nil
}

// Close ends every open session.
func (m *Module) Close(context.Context) error {
	m.uc.Shutdown()
	return nil
}

type recordStore interface {
	LoadSecurityRecord(ctx context.Context, accountID string) (entity.SecurityRecord, error)
	SaveSecurityRecord(ctx context.Context, accountID string, rec entity.SecurityRecord) error
}

func newRecordStore(dep Dependency, pg *db.DB) (recordStore, error) {
	switch name := strings.ToLower(strings.TrimSpace(dep.Config.GetString("modules.security.record_store"))); name {
	case RecordStoreDB, "":
		if pg == nil {
			return nil, fmt.Errorf("%w: database", ErrMissingResource)
		}
		return pg, nil

	case RecordStoreKV:
		if dep.CacheConn == nil {
			return nil, fmt.Errorf("%w: redis", ErrMissingResource)
		}
		return kv.NewKV(dep.CacheConn, dep.Config.GetString("modules.security.kv.prefix"), dep.Clock, dep.Instrument), nil

	case RecordStoreDocument:
		if dep.Storage == nil {
			return nil, fmt.Errorf("%w: storage", ErrMissingResource)
		}
		bucket := dep.Config.GetString("modules.security.document.bucket")
		if bucket == "" {
			return nil, fmt.Errorf("%w: modules.security.document.bucket", ErrMissingResource)
		}
		return document.NewDocument(dep.Storage, bucket, dep.Clock, dep.Instrument), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordStore, name)
	}
}

// newEncryptor returns the encryptor of stored secrets. The account source
// issues a key per account, wrapped under the master key in postgres.
func newEncryptor(dep Dependency, pg *db.DB) (mfa.Encryptor, error) {
	switch name := strings.ToLower(strings.TrimSpace(dep.Config.GetString("mfa.key_source"))); name {
	case KeySourceStatic, "":
		return dep.MasterEncryptor, nil

	case KeySourceAccount:
		if pg == nil {
			return nil, fmt.Errorf("%w: database", ErrMissingResource)
		}
		return mfa.NewAESGCMEncryptor(mfa.NewAccountKeyProvider(pg)), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeySource, name)
	}
}
