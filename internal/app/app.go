package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/config"
	"github.com/shandysiswandi/mynotes/internal/pkg/goroutine"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/jwt"
	"github.com/shandysiswandi/mynotes/internal/pkg/messaging"
	"github.com/shandysiswandi/mynotes/internal/pkg/mfa"
	"github.com/shandysiswandi/mynotes/internal/pkg/otp"
	"github.com/shandysiswandi/mynotes/internal/pkg/router"
	"github.com/shandysiswandi/mynotes/internal/pkg/storage"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
	"github.com/shandysiswandi/mynotes/internal/pkg/validator"
)

// closer releases one resource on shutdown.
type closer struct {
	name string
	fn   func(context.Context) error
}

// App owns the process: configuration, shared libraries, optional backing
// resources, the two HTTP servers and the security module.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine    *goroutine.Manager
	validator    validator.Validator
	clock        clock.Clocker
	uuid         uid.Generator
	otpEngine    *otp.Engine
	jwt          jwt.JWT
	mfaEncryptor mfa.Encryptor

	// nil unless configured
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	messaging messaging.Messaging
	storage   storage.Storage

	router     *router.Router
	httpServer *http.Server
	sseServer  *http.Server

	closers []closer
}

// New builds the whole application. Any failure is fatal.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	for _, step := range []func(){
		a.initConfig,
		a.initInstrument,
		a.initLibraries,
		a.initJWT,
		a.initDatabase,
		a.initCache,
		a.initStorage,
		a.initMessaging,
		a.initHTTPServer,
		a.initModules,
		a.initClosers,
	} {
		step()
	}

	return a
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// fatal logs and exits; startup has no partial mode.
func fatal(msg string, err error, kv ...any) {
	slog.Error(msg, append([]any{"error", err}, kv...)...)
	os.Exit(1)
}
