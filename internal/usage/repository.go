package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Record appends a usage record for an already committed (or same-tx) charge.
func (r *Repository) Record(ctx context.Context, tx sqlx.ExtContext, userID uuid.UUID, counts Counts, transactionID int64) (*Record, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		UserID:           userID,
		PromptTokens:     counts.PromptTokens,
		CompletionTokens: counts.CompletionTokens,
		TotalTokens:      counts.TotalTokens,
		ProviderMeta:     counts.providerMeta(),
		TransactionID:    transactionID,
	}

	err := tx.QueryRowxContext(ctx,
		`INSERT INTO usage_records (user_id, prompt_tokens, completion_tokens, total_tokens, meta, transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		rec.UserID, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.ProviderMeta, rec.TransactionID,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	records := []Record{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT id, user_id, prompt_tokens, completion_tokens, total_tokens, meta, transaction_id, created_at
		FROM usage_records
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}
