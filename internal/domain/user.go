package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User mirrors the Supabase-managed users row. Metadata carries the
// raw_user_meta_data document (names, org role, verification flags).
type User struct {
	ID        uuid.UUID
	Email     string
	Metadata  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate is a partial profile update; nil fields are left untouched and
// Metadata is merged into the existing document rather than replacing it.
type UserUpdate struct {
	Email    *string
	Metadata json.RawMessage
}
