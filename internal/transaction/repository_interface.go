package transaction

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Log is append-only: there is no update or delete.
type Log interface {
	Append(ctx context.Context, tx sqlx.ExtContext, t *Transaction) error
	Get(ctx context.Context, id int64) (*Transaction, error)
	ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]Transaction, error)
}

var _ Log = (*Repository)(nil)
