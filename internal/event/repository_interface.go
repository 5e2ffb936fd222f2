package event

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Log is append-only. Entries are written in the same tx as the transaction they describe.
type Log interface {
	Append(ctx context.Context, tx sqlx.ExtContext, e *Event) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error)
}

var _ Log = (*Repository)(nil)
