package transaction

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindTopUp            Kind = "topup"
	KindUsage            Kind = "usage"
	KindTransfer         Kind = "transfer"
	KindCommunalWithdraw Kind = "communal_withdraw"
	KindAdminAdjust      Kind = "admin_adjust"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTopUp, KindUsage, KindTransfer, KindCommunalWithdraw, KindAdminAdjust:
		return true
	}
	return false
}

// Transaction is an immutable record of one balance change. Amount is the
// magnitude of the change; direction comes from FromWalletID/ToWalletID.
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	FromWalletID *int64          `db:"from_wallet_id" json:"from_wallet_id,omitempty"`
	ToWalletID   *int64          `db:"to_wallet_id" json:"to_wallet_id,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Kind         Kind            `db:"kind" json:"kind"`
	Meta         Meta            `db:"meta" json:"meta,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Meta is stored as a JSON object.
type Meta map[string]string

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Meta) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported meta type %T", src)
	}
	return json.Unmarshal(data, m)
}

var (
	ErrTransactionNotFound = errors.New("transaction not found")

	errNoWallet = errors.New("transaction needs a source or destination wallet")
)
