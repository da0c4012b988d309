package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/config"
	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
	"github.com/shandysiswandi/mynotes/internal/pkg/jwt"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *Router
	token  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  maintenance:
    endpoints: /api/v1/down
`))
	require.NoError(t, err)

	verifier, err := jwt.NewHS512(jwt.Config{
		Secret:    bytes.Repeat([]byte("s"), 64),
		Issuer:    "auth",
		Audiences: []string{"mynotes"},
		TTL:       time.Hour,
		Clock:     clock.New(),
		UUID:      uid.NewUUID(),
	})
	require.NoError(t, err)

	token, err := verifier.Generate("acc-1", "jane@example.com")
	require.NoError(t, err)

	r := NewRouter(Config{Config: cfg, UUID: uid.NewUUID(), JWT: verifier})
	r.GET("/api/v1/whoami/:id", func(req *Request) (any, error) {
		return map[string]string{
			"account": jwt.GetAuth(req.Context()).AccountID,
			"id":      req.GetParam("id"),
			"ip":      ClientIP(req.Context()),
		}, nil
	})
	r.POST("/api/v1/echo", func(req *Request) (any, error) {
		var in struct {
			Code string `json:"code"`
		}
		if err := req.DecodeBody(&in); err != nil {
			return nil, err
		}
		return in, nil
	})
	r.GET("/api/v1/locked", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("Too many attempts", goerror.CodeLocked)
	})
	r.GET("/api/v1/panic", func(*Request) (any, error) {
		panic("boom")
	})
	r.GET("/api/v1/down", func(*Request) (any, error) {
		return nil, nil
	})

	return testEnv{router: r, token: token}
}

func (e testEnv) do(method, path, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_Public(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
}

func TestRouter_Authentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/whoami/42", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/whoami/42", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "acc-1", data["account"])
	assert.Equal(t, "42", data["id"])
	assert.Equal(t, "203.0.113.7", data["ip"])
}

func TestRouter_DecodeBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/echo", `{"code":"123456"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/echo", `{"code":"123456","extra":1}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/echo", `{"code":"1"}{"code":"2"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/locked", "", true)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "Too many attempts", decode(t, rec)["message"])

	rec = env.do(http.MethodGet, "/api/v1/panic", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/down", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/missing", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
