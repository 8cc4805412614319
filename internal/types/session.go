package types

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side record granting a cookie bearer continued
// authenticated access until ExpiresAt. The row is owned by the session
// store; nothing caches it beyond a single request.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the session is past its expiration at the
// given instant. Rows are not purged automatically, so resolution must
// check this before trusting the row.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
