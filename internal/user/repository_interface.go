package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Finder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type Store interface {
	Finder
	Upsert(ctx context.Context, tx sqlx.ExtContext, id uuid.UUID, role string) (*User, error)
}

var _ Store = (*Repository)(nil)
