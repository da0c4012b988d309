package app

import (
	"context"

	"github.com/shandysiswandi/mynotes/internal/security"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.security.enabled") {
		mod, err := security.New(security.Dependency{
			Ctx:             a.ctx,
			DBConn:          a.dbConn,
			CacheConn:       a.cacheConn,
			Storage:         a.storage,
			Messaging:       a.messaging,
			MasterEncryptor: a.mfaEncryptor,
			Engine:          a.otpEngine,
			Router:          a.router,
			Goroutine:       a.goroutine,
			Config:          a.config,
			Instrument:      a.ins,
			UUID:            a.uuid,
			Clock:           a.clock,
			Validator:       a.validator,
		})
		if err != nil {
			fatal("failed to init module security", err)
		}

		// closing the sessions ends their token streams so the SSE server can drain
		a.sseServer.RegisterOnShutdown(func() {
			//nolint:errcheck // Close never fails
			mod.Close(context.Background())
		})
		a.addCloser("SecuritySessions", mod.Close)
	}
}
