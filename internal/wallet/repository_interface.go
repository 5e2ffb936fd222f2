package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Store interface {
	Get(ctx context.Context, owner uuid.UUID, kind Kind) (*Wallet, error)
	LockForUpdate(ctx context.Context, tx sqlx.ExtContext, refs ...Ref) (map[Ref]*Wallet, error)
	ApplyDelta(ctx context.Context, tx sqlx.ExtContext, w *Wallet, delta decimal.Decimal) error
	CreatePersonal(ctx context.Context, tx sqlx.ExtContext, owner uuid.UUID) (*Wallet, error)
	CreateCommunal(ctx context.Context, tx sqlx.ExtContext) (*Wallet, error)
}

var _ Store = (*Repository)(nil)
