package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "6f1c2a3e-0000-4000-8000-000000000001"

func TestGet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCounter(rdb, time.Hour)
	ctx := context.Background()

	mock.ExpectGet("daily_usage:" + testUser).SetVal("1500")
	used, err := c.Get(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), used)

	mock.ExpectGet("daily_usage:" + testUser).RedisNil()
	used, err = c.Get(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Error(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCounter(rdb, time.Hour)

	mock.ExpectGet("daily_usage:" + testUser).SetErr(errors.New("connection refused"))
	_, err := c.Get(context.Background(), testUser)
	assert.Error(t, err)
}

func TestIncrement_OpensWindow(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCounter(rdb, 24*time.Hour)

	mock.ExpectIncrBy("daily_usage:"+testUser, 1500).SetVal(1500)
	mock.ExpectExpireNX("daily_usage:"+testUser, 24*time.Hour).SetVal(true)

	total, err := c.Increment(context.Background(), testUser, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrement_RejectsNonPositive(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCounter(rdb, time.Hour)

	_, err := c.Increment(context.Background(), testUser, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve(t *testing.T) {
	tests := []struct {
		name        string
		reply       []interface{}
		wantGranted bool
		wantUsed    int64
	}{
		{"granted", []interface{}{int64(1), int64(1500)}, true, 1500},
		{"denied", []interface{}{int64(0), int64(19000)}, false, 19000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb, mock := redismock.NewClientMock()
			c := NewCounter(rdb, 24*time.Hour)

			mock.ExpectEvalSha(reserveScript.Hash(), []string{"daily_usage:" + testUser},
				int64(1500), int64(20000), int64(86400)).SetVal(tt.reply)

			granted, used, err := c.Reserve(context.Background(), testUser, 1500, 20000)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGranted, granted)
			assert.Equal(t, tt.wantUsed, used)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReserve_Error(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCounter(rdb, 24*time.Hour)

	mock.ExpectEvalSha(reserveScript.Hash(), []string{"daily_usage:" + testUser},
		int64(10), int64(100), int64(86400)).SetErr(errors.New("timeout"))

	granted, _, err := c.Reserve(context.Background(), testUser, 10, 100)
	assert.Error(t, err)
	assert.False(t, granted)
}

func TestRelease(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCounter(rdb, 24*time.Hour)

	mock.ExpectEvalSha(releaseScript.Hash(), []string{"daily_usage:" + testUser}, int64(1500)).SetVal(int64(0))

	require.NoError(t, c.Release(context.Background(), testUser, 1500))
	assert.NoError(t, mock.ExpectationsWereMet())
}
