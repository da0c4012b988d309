package uid

import "github.com/google/uuid"

// Generator issues the ids of security sessions, JWTs and events.
type Generator interface {
	Generate() string
}

// UUID issues version 7 UUIDs so ids sort by creation time.
type UUID struct{}

func NewUUID() UUID {
	return UUID{}
}

// Generate falls back to a random v4 id when the v7 source fails.
func (UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
