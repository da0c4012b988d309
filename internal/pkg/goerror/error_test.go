package goerror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "server", err: NewServer(errors.New("db down")), want: http.StatusInternalServerError},
		{name: "invalid input", err: NewInvalidInput(nil, "code", "must be 6 digits"), want: http.StatusUnprocessableEntity},
		{name: "invalid format", err: NewInvalidFormat(), want: http.StatusBadRequest},
		{name: "not found", err: NewBusiness("Session not found", CodeNotFound), want: http.StatusNotFound},
		{name: "unauthorized", err: NewBusiness("Invalid code", CodeUnauthorized), want: http.StatusUnauthorized},
		{name: "locked", err: NewBusiness("Too many attempts", CodeLocked), want: http.StatusLocked},
		{name: "conflict", err: NewBusiness("Changed concurrently", CodeConflict), want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ge *Error
			require.True(t, errors.As(tt.err, &ge))
			assert.Equal(t, tt.want, ge.StatusCode())
		})
	}
}

func TestNewBusiness_Fields(t *testing.T) {
	err := NewBusiness("Invalid code", CodeUnauthorized, "retries_remaining", "2")

	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, TypeBusiness, ge.Type())
	assert.Equal(t, "Invalid code", ge.Error())
	assert.Equal(t, map[string]string{"retries_remaining": "2"}, ge.Fields())
	assert.Equal(t, "ERROR_CODE_UNAUTHORIZED", ge.Code().String())
}

func TestNewServer_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewServer(cause)

	assert.ErrorIs(t, err, cause)
	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "Internal server error", ge.Msg())
	assert.Equal(t, TypeServer, ge.Type())
}

func TestNewInvalidInput(t *testing.T) {
	var ge *Error

	require.True(t, errors.As(NewInvalidInput(nil, "custom_secret", "must be 32 characters"), &ge))
	assert.Equal(t, CodeInvalidInput, ge.Code())
	assert.Equal(t, "must be 32 characters", ge.Fields()["custom_secret"])

	require.True(t, errors.As(NewInvalidInput(nil, "odd"), &ge))
	assert.Equal(t, CodeInvalidFormat, ge.Code())
}

func TestError_Strings(t *testing.T) {
	assert.Equal(t, "ERROR_TYPE_VALIDATION", TypeValidation.String())
	assert.Equal(t, "ERROR_TYPE_UNKNOWN", Type(42).String())
	assert.Equal(t, "ERROR_CODE_LOCKED", CodeLocked.String())
	assert.Equal(t, "ERROR_CODE_INTERNAL", Code(42).String())

	var ge *Error
	require.True(t, errors.As(NewBusiness("Session not found", CodeNotFound), &ge))
	assert.Equal(t, `type=ERROR_TYPE_BUSINESS code=ERROR_CODE_NOT_FOUND msg="Session not found" cause=<nil>`, ge.String())
	assert.Nil(t, ge.Fields())

	require.True(t, errors.As(NewInvalidFormat("Body must be JSON"), &ge))
	assert.Equal(t, "Body must be JSON", ge.Error())
	assert.Equal(t, http.StatusBadRequest, ge.StatusCode())
}
