package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the ledger's view of an account: identity and role only. Profiles
// and credentials live with the auth service.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
