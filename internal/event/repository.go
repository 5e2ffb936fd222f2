package event

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrMissingUser = errors.New("wallet event requires a user")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(ctx context.Context, tx sqlx.ExtContext, e *Event) error {
	if e.UserID == uuid.Nil {
		return ErrMissingUser
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	return tx.QueryRowxContext(ctx,
		`INSERT INTO wallet_events (id, user_id, event_type, amount, description, chat_id, world_id, transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		e.ID, e.UserID, string(e.Type), e.Amount, e.Description, e.ChatID, e.WorldID, e.TransactionID,
	).Scan(&e.CreatedAt)
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	events := []Event{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, user_id, event_type, amount, description, chat_id, world_id, transaction_id, created_at
		FROM wallet_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}
