package models

import "github.com/google/uuid"

// NewID returns a time-sortable UUIDv7 string, so created-order survives in
// the primary key itself.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
