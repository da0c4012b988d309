package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/mynotes/internal/app"
)

const shutdownTimeout = 10 * time.Second

// @title           MyNotes API
// @version         1.0
// @description     Second factor for MyNotes accounts: TOTP enrollment, code validation and live token streams.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Bearer access token issued at sign-in.
func main() {
	a := app.New()
	<-a.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.Stop(ctx)
}
