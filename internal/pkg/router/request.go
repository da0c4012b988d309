package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/mynotes/internal/pkg/goerror"
)

// maxBodyBytes bounds request bodies; the largest is an enrollment request.
const maxBodyBytes = 64 << 10

type Request struct {
	*http.Request
}

// GetParam returns the path parameter matched by httprouter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// DecodeBody reads exactly one JSON object into dst. Unknown fields and
// trailing data are rejected. With optional set, a missing body leaves dst
// as is.
func (r *Request) DecodeBody(dst any, optional ...bool) error {
	allowEmpty := len(optional) > 0 && optional[0]

	if r.Body == nil || r.Body == http.NoBody {
		if allowEmpty {
			return nil
		}
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	switch {
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case err != nil:
		return goerror.NewInvalidFormat()
	case !errors.Is(dec.Decode(&struct{}{}), io.EOF):
		return goerror.NewInvalidFormat()
	}

	return nil
}
