package inbound

import (
	"net/http"

	"github.com/shandysiswandi/mynotes/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/security/algorithms", end.Algorithms)

	r.POST("/api/v1/security/sessions", end.OpenSession)
	r.GET("/api/v1/security/sessions/:id", end.SessionStatus)
	r.DELETE("/api/v1/security/sessions/:id", end.CloseSession)

	r.POST("/api/v1/security/sessions/:id/enroll", end.Enroll)
	r.POST("/api/v1/security/sessions/:id/validate", end.Validate)
	r.PUT("/api/v1/security/sessions/:id/algorithm", end.SetAlgorithm)
	r.DELETE("/api/v1/security/sessions/:id/second-factor", end.Disable)

	r.GET("/api/v1/security/sessions/:id/token", end.CurrentToken)
	r.GETRaw("/api/v1/security/sessions/:id/token/stream", http.HandlerFunc(end.StreamTokens))
	r.GETRaw("/api/v1/security/sessions/:id/qr", http.HandlerFunc(end.ProvisioningQR))
}
