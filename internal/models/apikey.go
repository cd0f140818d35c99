package models

import (
	"time"

	"github.com/google/uuid"
)

// Long living user key to place orders without session
// Only the key hash is stored, the key itself is shown to the user once
type APIKey struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Prefix    string
	HashedKey string
	CreatedAt time.Time
}
