package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts t and fills in its ID and CreatedAt.
func (r *Repository) Append(ctx context.Context, tx sqlx.ExtContext, t *Transaction) error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s", t.Amount)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid transaction kind %q", t.Kind)
	}
	if t.FromWalletID == nil && t.ToWalletID == nil {
		return errNoWallet
	}

	return tx.QueryRowxContext(ctx,
		`INSERT INTO transactions (from_wallet_id, to_wallet_id, amount, kind, meta)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.FromWalletID, t.ToWalletID, t.Amount, string(t.Kind), t.Meta,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *Repository) Get(ctx context.Context, id int64) (*Transaction, error) {
	t := &Transaction{}
	err := r.db.GetContext(ctx, t, `
		SELECT id, from_wallet_id, to_wallet_id, amount, kind, meta, created_at
		FROM transactions
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *Repository) ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, from_wallet_id, to_wallet_id, amount, kind, meta, created_at
		FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}
