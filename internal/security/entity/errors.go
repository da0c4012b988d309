package entity

import "errors"

var (
	// ErrLockedOut is returned once the attempt budget of a session is exhausted.
	ErrLockedOut = errors.New("security: locked out")
	// ErrSessionNotFound is returned for unknown, closed or foreign sessions.
	ErrSessionNotFound = errors.New("security: session not found")
	// ErrSessionClosed is returned by a controller after Close.
	ErrSessionClosed = errors.New("security: session closed")
	// ErrConcurrentChange is returned when session state changed while an
	// operation was waiting on I/O.
	ErrConcurrentChange = errors.New("security: concurrent change")
	// ErrNotEnrolled is returned when an operation needs an enrolled secret.
	ErrNotEnrolled = errors.New("security: second factor not enrolled")
)
