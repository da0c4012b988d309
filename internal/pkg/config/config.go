package config

import (
	"io"
	"time"
)

// Config defines a set of methods for retrieving configuration values of
// various types. Missing keys and unconvertible values yield the zero value.
type Config interface {
	io.Closer

	// GetSecond retrieves an integer value interpreted as seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves an integer value interpreted as minutes.
	GetMinute(key string) time.Duration

	// GetInt retrieves the value as an int.
	GetInt(key string) int

	// GetUint64 retrieves the value as a uint64.
	GetUint64(key string) uint64

	// GetFloat64 retrieves the value as a float64.
	GetFloat64(key string) float64

	// GetBool retrieves the value as a bool.
	GetBool(key string) bool

	// GetString retrieves the value as a string.
	GetString(key string) string

	// GetBinary retrieves a base64 encoded value as bytes.
	GetBinary(key string) []byte

	// GetArray retrieves a value stored as <element1>,<element2>,... Elements
	// are trimmed and empty elements dropped.
	GetArray(key string) []string
}
