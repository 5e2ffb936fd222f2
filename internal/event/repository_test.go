package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEventMock(t *testing.T) (*Repository, *sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), sqlxDB, mock
}

func TestExpense(t *testing.T) {
	userID := uuid.New()
	chatID := uuid.New()
	worldID := int64(12)

	tests := []struct {
		name        string
		communal    bool
		correlation Correlation
		wantType    Type
		wantDesc    string
	}{
		{"personal chat", false, Correlation{ChatID: &chatID}, TypeChatExpensePersonal, "Chat expense (personal tokens): 500 tokens"},
		{"communal chat", true, Correlation{}, TypeChatExpenseCommunal, "Chat expense (communal tokens): 500 tokens"},
		{"personal world", false, Correlation{WorldID: &worldID, WorldName: "Atlantis"}, TypeWorldChatExpensePersonal, "Spent in world 'Atlantis' (personal tokens): 500 tokens"},
		{"communal world without name", true, Correlation{WorldID: &worldID}, TypeWorldChatExpenseCommunal, "Spent in world '#12' (communal tokens): 500 tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Expense(userID, decimal.NewFromInt(500), tt.communal, tt.correlation)

			assert.Equal(t, tt.wantType, e.Type)
			assert.Equal(t, tt.wantDesc, e.Description)
			assert.True(t, decimal.NewFromInt(-500).Equal(e.Amount))
			assert.Equal(t, userID, e.UserID)
		})
	}
}

func TestExpense_CarriesChatID(t *testing.T) {
	chatID := uuid.New()
	e := Expense(uuid.New(), decimal.NewFromInt(1), false, Correlation{ChatID: &chatID})

	assert.True(t, e.ChatID.Valid)
	assert.Equal(t, chatID, e.ChatID.UUID)
	assert.Nil(t, e.WorldID)
}

func TestTopUp(t *testing.T) {
	e := TopUp(uuid.New(), decimal.NewFromInt(50000), "")

	assert.Equal(t, TypeTopUp, e.Type)
	assert.True(t, decimal.NewFromInt(50000).Equal(e.Amount))
	assert.Equal(t, "Wallet top-up of 50000 tokens", e.Description)

	e = TopUp(uuid.New(), decimal.NewFromInt(10), "welcome bonus")
	assert.Equal(t, "welcome bonus", e.Description)
}

func TestAppend(t *testing.T) {
	repo, db, mock := setupEventMock(t)
	ctx := context.Background()
	userID := uuid.New()
	txID := int64(42)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallet_events (id, user_id, event_type, amount, description, chat_id, world_id, transaction_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at")).
		WithArgs(sqlmock.AnyArg(), userID, "chat_expense_personal", decimal.NewFromInt(-500), "Chat expense (personal tokens): 500 tokens", nil, nil, int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	e := Expense(userID, decimal.NewFromInt(500), false, Correlation{})
	e.TransactionID = &txID
	require.NoError(t, repo.Append(ctx, tx, e))
	require.NoError(t, tx.Commit())

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, now, e.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_RequiresUser(t *testing.T) {
	repo, db, mock := setupEventMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.Append(ctx, tx, &Event{Type: TypeTopUp, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestListByUser(t *testing.T) {
	repo, _, mock := setupEventMock(t)
	userID := uuid.New()
	eventID := uuid.New()

	cols := []string{"id", "user_id", "event_type", "amount", "description", "chat_id", "world_id", "transaction_id", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallet_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs(userID, 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(eventID.String(), userID.String(), "topup", "50000.00", "Wallet top-up of 50000 tokens", nil, nil, 1, time.Now()))

	events, err := repo.ListByUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].ID)
	assert.Equal(t, TypeTopUp, events[0].Type)
	assert.False(t, events[0].ChatID.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
