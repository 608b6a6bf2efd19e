package shared

import "github.com/google/uuid"

// NewID returns a fresh opaque record identifier.
func NewID() string {
	return uuid.NewString()
}
