package router

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/mynotes/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into a logged 500. An aborted
// handler panics again so net/http can drop the connection.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rvr)
			}

			raw := debug.Stack()
			var stack any = string(raw)
			if frames := stacktrace.InternalPaths(raw); len(frames) > 0 {
				stack = frames
			}
			slog.ErrorContext(r.Context(), "handler panicked", "panic", rvr, "stack", stack)

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
