package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/mynotes/internal/pkg/config"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/jwt"
	"github.com/shandysiswandi/mynotes/internal/pkg/uid"
)

// Handler returns the payload of a JSON endpoint, or an error that
// WriteError turns into the error envelope.
type Handler func(r *Request) (any, error)

// Config holds the dependencies of NewRouter. A nil Instrument falls back to
// a no-op one.
type Config struct {
	Config     config.Config
	UUID       uid.Generator
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
}

// Router serves the API: httprouter matching behind a shared middleware
// stack. Every route requires a bearer token except those in public.
type Router struct {
	hr     *httprouter.Router
	stack  []Middleware
	public map[string]map[string]bool
}

func NewRouter(cfg Config) *Router {
	ins := cfg.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	ro := &Router{
		hr: &httprouter.Router{
			RedirectTrailingSlash:  true,
			RedirectFixedPath:      true,
			HandleMethodNotAllowed: true,
			HandleOPTIONS:          true,
			SaveMatchedRoutePath:   true,
			NotFound:               statusHandler(http.StatusNotFound, "Endpoint not found"),
			MethodNotAllowed:       statusHandler(http.StatusMethodNotAllowed, "Method not allowed"),
		},
		public: map[string]map[string]bool{
			http.MethodGet: {"/": true, "/health": true},
		},
	}
	ro.stack = []Middleware{
		middlewareRecoverer,
		middlewareIP,
		middlewareCorrelationID(cfg.UUID),
		middlewareObservability(ins),
		middlewareMaintenance(cfg.Config),
		middlewareAuthentication(cfg.JWT, ro.isPublic),
	}

	ro.GET("/", func(*Request) (any, error) { return welcome{}, nil })
	ro.GET("/health", func(*Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})

	return ro
}

type welcome struct{}

func (welcome) Message() string { return "Welcome to API MyNotes" }

func (r *Router) isPublic(method, route string) bool {
	return r.public[method][route]
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodGet, path, h, mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodPost, path, h, mws...)
}

func (r *Router) PUT(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodPut, path, h, mws...)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodDelete, path, h, mws...)
}

// Handle registers a JSON endpoint.
func (r *Router) Handle(method, path string, h Handler, mws ...Middleware) {
	r.HandleRaw(method, path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(interface{ SetError(error) }); ok {
				rec.SetError(err)
			}
			WriteError(req.Context(), w, err)
			return
		}
		writeOK(w, resp)
	}), mws...)
}

// GETRaw registers a GET endpoint that owns the response writer, used for
// streams and binary bodies.
func (r *Router) GETRaw(path string, h http.Handler, mws ...Middleware) {
	r.HandleRaw(http.MethodGet, path, h, mws...)
}

func (r *Router) HandleRaw(method, path string, h http.Handler, mws ...Middleware) {
	stack := append(append([]Middleware{}, r.stack...), mws...)
	r.hr.Handler(method, path, Chain(h, stack...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}
