package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carewatch/internal/types"
)

func TestJobLockRepository_Acquire(t *testing.T) {
	db := new(mockDBTX)
	repo := NewJobLockRepository(db)

	ttl := 10 * time.Minute
	db.On("Exec", mock.Anything, mock.Anything, []any{"alert_check:202603140930", "w1", testNow, testNow.Add(ttl)}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	db.On("Exec", mock.Anything, mock.Anything, []any{"alert_check:202603140930", "w2", testNow, testNow.Add(ttl)}).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil).Once()

	ok, err := repo.Acquire(context.Background(), "alert_check:202603140930", "w1", testNow, ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Acquire(context.Background(), "alert_check:202603140930", "w2", testNow, ttl)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobHistoryRepository_StartFinish(t *testing.T) {
	db := new(mockDBTX)
	repo := NewJobHistoryRepository(db)

	db.On("QueryRow", mock.Anything, mock.Anything, []any{"anomaly_analysis"}).Return(rowOf(int64(42)))
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	id, err := repo.Start(context.Background(), "anomaly_analysis")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NoError(t, repo.Finish(context.Background(), id, "failed", 0, errors.New("schema")))
}

func TestJobHistoryRepository_Finish_Missing(t *testing.T) {
	db := new(mockDBTX)
	repo := NewJobHistoryRepository(db)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Finish(context.Background(), 7, "success", 3, nil)
	assert.True(t, types.HasCode(err, types.ErrCodeInternalUnexpected))
}
