package router

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// correlationHeaders are read in order; the first usable value wins.
var correlationHeaders = []string{HeaderCorrelationID, HeaderRequestID}

// cleanCorrelationID keeps printable ASCII only so the id is safe to echo
// back and to log.
func cleanCorrelationID(v string) string {
	v = strings.TrimSpace(v)
	if strings.IndexFunc(v, func(r rune) bool { return r < 0x20 || r > 0x7e }) >= 0 {
		return ""
	}
	return v[:min(len(v), maxCorrelationIDLen)]
}

// middlewareCorrelationID tags the request context and the response with a
// correlation id, reusing the caller's when it sent one.
func middlewareCorrelationID(gen uid.Generator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ids := lo.Map(correlationHeaders, func(h string, _ int) string {
				return cleanCorrelationID(r.Header.Get(h))
			})
			cid, ok := lo.Find(ids, func(v string) bool { return v != "" })
			if !ok && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
