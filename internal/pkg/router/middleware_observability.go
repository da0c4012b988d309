package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBodyBytes = 32 << 10

// recorder captures the status, size and a bounded copy of the body. Event
// streams and images are never copied: they carry live codes and QR images.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
	capped bool
	err    error
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if !w.capped && !opaque(w.Header().Get("Content-Type")) {
		room := maxLoggedBodyBytes - w.body.Len()
		w.body.Write(p[:min(len(p), room)])
		w.capped = len(p) > room
	}

	n, err := w.ResponseWriter.Write(p)
	w.size += n
	return n, err
}

// SetError keeps the handler error for the span.
func (w *recorder) SetError(err error) { w.err = err }

func (w *recorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *recorder) code() int {
	return lo.Ternary(w.status == 0, http.StatusOK, w.status)
}

func opaque(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/event-stream") || strings.HasPrefix(ct, "image/")
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekBody returns the head of the request body and puts it back.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	//nolint:errcheck // logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

// logBody decodes JSON so the masking log handler sees its keys.
func logBody(contentType string, body []byte, capped bool) any {
	switch {
	case opaque(contentType):
		return "<stream omitted>"
	case len(body) == 0:
		return nil
	}

	var v any
	if !capped && json.Unmarshal(body, &v) == nil {
		return v
	}
	if !utf8.Valid(body) {
		return "<binary body omitted>"
	}
	return string(body) + lo.Ternary(capped, "...(truncated)", "")
}

func logHeaders(h http.Header) map[string]string {
	return lo.MapValues(h, func(v []string, _ string) string { return strings.Join(v, ", ") })
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) httpMetrics {
	var m httpMetrics
	var err error

	if m.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	if m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms")); err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return m
}

func (m httpMetrics) record(r *http.Request, elapsed time.Duration, attrs []attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	if m.requests != nil {
		m.requests.Add(r.Context(), 1, opt)
	}
	if m.duration != nil {
		m.duration.Record(r.Context(), float64(elapsed.Microseconds())/1000, opt)
	}
}

// middlewareObservability traces each request, records request metrics and
// logs the request and the response. Bodies go through the masking logger.
func middlewareObservability(ins instrument.Instrumentation) Middleware {
	tracer := ins.Tracer("http.server")
	metrics := newHTTPMetrics(ins.Meter("http.server"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := matchedRoutePath(r)
			base := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
			}

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(base...))
			defer span.End()
			r = r.WithContext(ctx)

			reqBody := peekBody(r)
			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"uri", r.RequestURI,
				"client_ip", ClientIP(ctx),
				"headers", logHeaders(r.Header),
				"body", logBody(r.Header.Get("Content-Type"), reqBody, len(reqBody) >= maxLoggedBodyBytes),
			)

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.code()
			attrs := append(base, semconv.HTTPResponseStatusCodeKey.Int(status))

			if rec.err != nil {
				span.RecordError(rec.err)
			}
			span.SetStatus(lo.Ternary(status >= http.StatusInternalServerError, codes.Error, codes.Ok), "")
			span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(status), attribute.Int("http.response_content_length", rec.size))

			elapsed := time.Since(start)
			metrics.record(r, elapsed, attrs)

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", rec.size,
				"latency_ms", elapsed.Milliseconds(),
				"body", logBody(rec.Header().Get("Content-Type"), rec.body.Bytes(), rec.capped),
			)
		})
	}
}
