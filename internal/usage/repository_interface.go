package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Recorder interface {
	Record(ctx context.Context, tx sqlx.ExtContext, userID uuid.UUID, counts Counts, transactionID int64) (*Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error)
}

var _ Recorder = (*Repository)(nil)
