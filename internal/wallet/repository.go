package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, kind, balance, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Get reads a wallet without locking it.
func (r *Repository) Get(ctx context.Context, owner uuid.UUID, kind Kind) (*Wallet, error) {
	query, args := selectQuery(Ref{Owner: owner, Kind: kind}, false)

	w := &Wallet{}
	if err := r.db.GetContext(ctx, w, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return w, nil
}

// LockForUpdate takes row locks on the named wallets inside tx, always in the
// global order so two charges can never wait on each other in a cycle.
// Wallets that do not exist are absent from the result.
func (r *Repository) LockForUpdate(ctx context.Context, tx sqlx.ExtContext, refs ...Ref) (map[Ref]*Wallet, error) {
	ordered := make([]Ref, 0, len(refs))
	seen := make(map[Ref]bool, len(refs))
	for _, ref := range refs {
		if ref.Kind == KindCommunal {
			ref.Owner = uuid.Nil
		}
		if !seen[ref] {
			seen[ref] = true
			ordered = append(ordered, ref)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].less(ordered[j]) })

	locked := make(map[Ref]*Wallet, len(ordered))
	for _, ref := range ordered {
		query, args := selectQuery(ref, true)

		var w Wallet
		err := tx.QueryRowxContext(ctx, query, args...).StructScan(&w)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if IsConcurrencyError(err) {
				return nil, fmt.Errorf("%w: %s wallet: %v", ErrLockTimeout, ref.Kind, err)
			}
			return nil, err
		}
		locked[ref] = &w
	}
	return locked, nil
}

// ApplyDelta changes the balance of a wallet locked by LockForUpdate in the same tx.
func (r *Repository) ApplyDelta(ctx context.Context, tx sqlx.ExtContext, w *Wallet, delta decimal.Decimal) error {
	newBalance := w.Balance.Add(delta)
	if newBalance.IsNegative() {
		return ErrNegativeBalance
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrWalletNotFound
	}

	w.Balance = newBalance
	return nil
}

// CreatePersonal inserts an empty personal wallet. Balances only grow through
// recorded transactions, so the caller credits it separately.
func (r *Repository) CreatePersonal(ctx context.Context, tx sqlx.ExtContext, owner uuid.UUID) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id, kind, balance)
		 VALUES ($1, 'personal', 0)
		 ON CONFLICT (user_id) WHERE kind = 'personal' DO NOTHING
		 RETURNING `+walletColumns,
		owner,
	).StructScan(w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	return w, nil
}

func (r *Repository) CreateCommunal(ctx context.Context, tx sqlx.ExtContext) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id, kind, balance)
		 VALUES (NULL, 'communal', 0)
		 ON CONFLICT (kind) WHERE kind = 'communal' DO NOTHING
		 RETURNING `+walletColumns,
	).StructScan(w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	return w, nil
}

// TotalBalance sums every wallet balance in the system.
func (r *Repository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(balance), 0) FROM wallets`)
	return total, err
}

func selectQuery(ref Ref, forUpdate bool) (string, []interface{}) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}
	if ref.Kind == KindCommunal {
		return `SELECT ` + walletColumns + ` FROM wallets WHERE kind = 'communal'` + lock, nil
	}
	return `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND kind = 'personal'` + lock,
		[]interface{}{ref.Owner}
}
