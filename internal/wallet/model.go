package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPersonal Kind = "personal"
	KindCommunal Kind = "communal"
)

// Wallet is a token balance. Communal wallets have no owner.
type Wallet struct {
	ID        int64           `db:"id" json:"id"`
	UserID    uuid.NullUUID   `db:"user_id" json:"user_id"`
	Kind      Kind            `db:"kind" json:"kind"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Ref names a wallet by owner and kind. Owner is ignored for the communal wallet.
type Ref struct {
	Owner uuid.UUID
	Kind  Kind
}

func Personal(owner uuid.UUID) Ref {
	return Ref{Owner: owner, Kind: KindPersonal}
}

func Communal() Ref {
	return Ref{Kind: KindCommunal}
}

// less is the global lock order: personal wallets (by owner) before the communal one.
func (r Ref) less(o Ref) bool {
	if r.Kind != o.Kind {
		return r.Kind == KindPersonal
	}
	return r.Owner.String() < o.Owner.String()
}
