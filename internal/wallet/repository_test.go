package wallet

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var walletCols = []string{"id", "user_id", "kind", "balance", "created_at", "updated_at"}

func setupWalletMock(t *testing.T) (*Repository, *sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, sqlxDB, mock, closer
}

func TestGet_Personal(t *testing.T) {
	repo, _, mock, close := setupWalletMock(t)
	defer close()

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, kind, balance, created_at, updated_at FROM wallets WHERE user_id = $1 AND kind = 'personal'")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(walletCols).AddRow(5, userID.String(), "personal", "1000.00", time.Now(), time.Now()))

	w, err := repo.Get(context.Background(), userID, KindPersonal)
	require.NoError(t, err)
	assert.Equal(t, int64(5), w.ID)
	assert.Equal(t, KindPersonal, w.Kind)
	assert.True(t, w.UserID.Valid)
	assert.Equal(t, userID, w.UserID.UUID)
	assert.True(t, decimal.NewFromInt(1000).Equal(w.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_CommunalHasNoOwner(t *testing.T) {
	repo, _, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE kind = 'communal'")).
		WillReturnRows(sqlmock.NewRows(walletCols).AddRow(1, nil, "communal", "10000", time.Now(), time.Now()))

	w, err := repo.Get(context.Background(), uuid.New(), KindCommunal)
	require.NoError(t, err)
	assert.False(t, w.UserID.Valid)
	assert.Equal(t, KindCommunal, w.Kind)
}

func TestGet_NotFound(t *testing.T) {
	repo, _, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE user_id = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New(), KindPersonal)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestLockForUpdate_PersonalBeforeCommunal(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE user_id = $1 AND kind = 'personal' FOR UPDATE")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(walletCols).AddRow(7, userID.String(), "personal", "1000", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE kind = 'communal' FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(walletCols).AddRow(1, nil, "communal", "10000", time.Now(), time.Now()))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	// Requested communal-first; the store must still lock personal first.
	locked, err := repo.LockForUpdate(ctx, tx, Communal(), Personal(userID))
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.Equal(t, int64(7), locked[Personal(userID)].ID)
	assert.Equal(t, int64(1), locked[Communal()].ID)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockForUpdate_MissingWalletIsAbsent(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(walletCols).AddRow(7, userID.String(), "personal", "10", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE kind = 'communal' FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(walletCols))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	locked, err := repo.LockForUpdate(ctx, tx, Personal(userID), Communal())
	require.NoError(t, err)
	assert.Len(t, locked, 1)
	assert.Nil(t, locked[Communal()])
}

func TestLockForUpdate_LockTimeout(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = repo.LockForUpdate(ctx, tx, Personal(uuid.New()))
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.True(t, IsConcurrencyError(err))
}

func TestApplyDelta(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()
	w := &Wallet{ID: 7, Kind: KindPersonal, Balance: decimal.NewFromInt(2000)}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(decimal.NewFromInt(1500), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, repo.ApplyDelta(ctx, tx, w, decimal.NewFromInt(-500)))
	require.NoError(t, tx.Commit())
	assert.True(t, decimal.NewFromInt(1500).Equal(w.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDelta_NegativeBalanceRejected(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()
	w := &Wallet{ID: 7, Kind: KindPersonal, Balance: decimal.NewFromInt(100)}

	mock.ExpectBegin()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.ApplyDelta(ctx, tx, w, decimal.NewFromInt(-101))
	assert.ErrorIs(t, err, ErrNegativeBalance)
	assert.True(t, decimal.NewFromInt(100).Equal(w.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDelta_WalletGone(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()
	w := &Wallet{ID: 9, Balance: decimal.NewFromInt(100)}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.ApplyDelta(ctx, tx, w, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestCreatePersonal(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (user_id, kind, balance) VALUES ($1, 'personal', 0) ON CONFLICT (user_id) WHERE kind = 'personal' DO NOTHING RETURNING id, user_id, kind, balance, created_at, updated_at")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(walletCols).AddRow(11, userID.String(), "personal", "0", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(walletCols))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	w, err := repo.CreatePersonal(ctx, tx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), w.ID)
	assert.True(t, w.Balance.IsZero())

	_, err = repo.CreatePersonal(ctx, tx, userID)
	assert.ErrorIs(t, err, ErrWalletExists)
}

func TestCreateCommunal_OnlyOnce(t *testing.T) {
	repo, db, mock, close := setupWalletMock(t)
	defer close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (kind) WHERE kind = 'communal' DO NOTHING")).
		WillReturnRows(sqlmock.NewRows(walletCols))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = repo.CreateCommunal(ctx, tx)
	assert.ErrorIs(t, err, ErrWalletExists)
}

func TestTotalBalance(t *testing.T) {
	repo, _, mock, close := setupWalletMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(balance), 0) FROM wallets")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("11000.00"))

	total, err := repo.TotalBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(11000).Equal(total))
}

func TestIsConcurrencyError(t *testing.T) {
	assert.True(t, IsConcurrencyError(&pq.Error{Code: "40P01"}))
	assert.True(t, IsConcurrencyError(&pq.Error{Code: "40001"}))
	assert.False(t, IsConcurrencyError(&pq.Error{Code: "23505"}))
	assert.False(t, IsConcurrencyError(assert.AnError))
}
