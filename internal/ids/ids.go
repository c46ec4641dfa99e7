package ids

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewNotificationID generates a time-ordered UUID v7.
func NewNotificationID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewConnID identifies one live connection.
func NewConnID() string {
	return ulid.Make().String()
}
