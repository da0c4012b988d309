package inbound

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/mynotes/internal/pkg/router"
	"github.com/shandysiswandi/mynotes/internal/security/usecase"
)

// StreamTokens streams the session's live token using SSE.
// @Summary Stream tokens
// @Description Streams the current code immediately and on every heartbeat using Server-Sent Events (SSE).
// @Tags Security
// @Security BearerAuth
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Success 200 {string} string "SSE stream"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Failure 500 {string} string "streaming unsupported"
// @Router /api/v1/security/sessions/{id}/token/stream [get]
func (h *HTTPEndpoint) StreamTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	in := usecase.SessionInput{SessionID: httprouter.ParamsFromContext(ctx).ByName("id")}
	stream, err := h.uc.StreamTokens(ctx, in)
	if err != nil {
		router.WriteError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		slog.ErrorContext(ctx, "failed to send response connected", "error", err)
		return
	}
	flusher.Flush()

	// heartbeat ping, so proxies won't drop the connection while not enrolled.
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case tok, ok := <-stream:
			if !ok {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			payload, err := json.Marshal(newTokenResponse(tok))
			if err != nil {
				slog.ErrorContext(ctx, "failed to marshal data", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: token\ndata: %s\n\n", payload); err != nil {
				slog.ErrorContext(ctx, "failed to send response data", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// ProvisioningQR renders the pairing QR code of the enrolled secret.
// @Summary Provisioning QR code
// @Description Returns the pairing QR code as a PNG. Replies 204 while nothing is enrolled.
// @Tags Security
// @Security BearerAuth
// @Produce png
// @Param id path string true "Session ID"
// @Success 200 {file} binary "PNG image"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Session not found"
// @Router /api/v1/security/sessions/{id}/qr [get]
func (h *HTTPEndpoint) ProvisioningQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in := usecase.SessionInput{SessionID: httprouter.ParamsFromContext(ctx).ByName("id")}
	m, err := h.uc.ProvisioningMatrix(ctx, in)
	if err != nil {
		router.WriteError(ctx, w, err)
		return
	}

	if m == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := m.WritePNG(w); err != nil {
		slog.ErrorContext(ctx, "failed to write qr png", "error", err)
	}
}
