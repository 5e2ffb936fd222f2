package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, role, created_at
		FROM users
		WHERE id = $1
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// Upsert registers a user issued by the auth service, updating the role when
// the user is already known.
func (r *Repository) Upsert(ctx context.Context, tx sqlx.ExtContext, id uuid.UUID, role string) (*User, error) {
	query := `
		INSERT INTO users (id, role)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role
		RETURNING id, role, created_at
	`

	var user User
	if err := tx.QueryRowxContext(ctx, query, id, role).StructScan(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
