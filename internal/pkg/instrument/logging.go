package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// DefaultMaskFields are always masked: TOTP secrets, codes and credentials.
var DefaultMaskFields = []string{"secret", "custom_secret", "plain_secret", "base32_secret", "provisioning_uri", "code", "token", "authorization", "password"}

const masked = "***"

// Provisioning URIs carry the secret in their query string.
const otpauthScheme = "otpauth://"

func initLogging(w io.Writer, serviceName string, lp *sdklog.LoggerProvider, maskFields []string) {
	slog.SetDefault(newLogger(w, serviceName, lp, maskFields))
}

func newLogger(w io.Writer, serviceName string, lp *sdklog.LoggerProvider, maskFields []string) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		AddSource:   true,
		ReplaceAttr: renameAttr,
	})

	if lp != nil {
		handler = &multiHandler{handlers: []slog.Handler{
			handler,
			otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp)),
		}}
	}

	m := newMasker(lo.Union(maskFields, DefaultMaskFields))

	return slog.New(&contextHandler{
		Handler:     &maskHandler{handler: handler, m: m},
		serviceName: serviceName,
	})
}

// renameAttr uses ts/severity keys and shortens the source to a path below
// internal/. Sources outside internal/ are dropped.
func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", fmt.Sprintf("%s:%d", filepath.Join("internal", rel), src.Line))
	}
	return a
}

type contextHandler struct {
	slog.Handler
	serviceName string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" {
		r.AddAttrs(slog.String("_cID", cID))
	}
	r.AddAttrs(slog.String("service", h.serviceName))

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), serviceName: h.serviceName}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), serviceName: h.serviceName}
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return lo.SomeBy(m.handlers, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiHandler{handlers: lo.Map(m.handlers, func(h slog.Handler, _ int) slog.Handler { return h.WithAttrs(attrs) })}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return &multiHandler{handlers: lo.Map(m.handlers, func(h slog.Handler, _ int) slog.Handler { return h.WithGroup(name) })}
}

// maskHandler redacts sensitive attributes, including those bound with
// Logger.With.
type maskHandler struct {
	handler slog.Handler
	m       *masker
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(h.m.attr(attr))
		return true
	})

	return h.handler.Handle(ctx, out)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &maskHandler{handler: h.handler.WithAttrs(lo.Map(attrs, func(a slog.Attr, _ int) slog.Attr { return h.m.attr(a) })), m: h.m}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{handler: h.handler.WithGroup(name), m: h.m}
}

type masker struct {
	keys map[string]struct{}
}

func newMasker(fields []string) *masker {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return &masker{keys: keys}
}

func (m *masker) sensitive(key string) bool {
	_, ok := m.keys[strings.ToLower(key)]
	return ok
}

func (m *masker) attr(a slog.Attr) slog.Attr {
	if m.sensitive(a.Key) {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		a.Value = slog.GroupValue(lo.Map(a.Value.Group(), func(ga slog.Attr, _ int) slog.Attr { return m.attr(ga) })...)
	case slog.KindString:
		s := a.Value.String()
		if strings.HasPrefix(s, otpauthScheme) {
			a.Value = slog.StringValue(masked)
		} else if out, ok := m.json([]byte(s)); ok {
			a.Value = slog.StringValue(out)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any:
			a.Value = slog.AnyValue(m.data(v))
		case map[string]string:
			a.Value = slog.AnyValue(m.data(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []any:
			a.Value = slog.AnyValue(m.data(v))
		case []byte:
			if out, ok := m.json(v); ok {
				a.Value = slog.StringValue(out)
			}
		}
	}

	return a
}

// json masks JSON object or array payloads, such as logged request bodies.
func (m *masker) json(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}

	out, err := json.Marshal(m.data(body))
	if err != nil {
		return "", false
	}

	return string(out), true
}

func (m *masker) data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.sensitive(k) {
				out[k] = masked
			} else {
				out[k] = m.data(v2)
			}
		}
		return out
	case []any:
		return lo.Map(val, func(v2 any, _ int) any { return m.data(v2) })
	case string:
		if strings.HasPrefix(val, otpauthScheme) {
			return masked
		}
		return val
	default:
		return v
	}
}
