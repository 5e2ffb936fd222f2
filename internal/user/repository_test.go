package user

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserMock(t *testing.T) (*Repository, *sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, sqlxDB, mock, closer
}

func TestUpsertAndFindUser(t *testing.T) {
	repo, db, mock, close := setupUserMock(t)
	defer close()

	ctx := context.Background()
	id := uuid.New()
	now := time.Now()

	// Upsert
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (id, role) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role RETURNING id, role, created_at")).
		WithArgs(id, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "created_at"}).AddRow(id.String(), "admin", now))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	u, err := repo.Upsert(ctx, tx, id, "admin")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.Equal(t, id, u.ID)

	// FindByID
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, role, created_at FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "created_at"}).AddRow(id.String(), "admin", now))

	fu, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "admin", fu.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, _, mock, close := setupUserMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
