package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestContactRepository_GetByIDs(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContactRepository(db)

	ids := []string{"c1", "c2"}
	db.On("Query", mock.Anything, mock.Anything, []any{ids}).
		Return(newMockRows(
			[]any{"c1", "Ana", "ana@example.com", "", true},
			[]any{"c2", "Ben", "", "+15550001111", false},
		), nil)

	contacts, err := repo.GetByIDs(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.True(t, contacts[0].IsPrimary)
	assert.Equal(t, "+15550001111", contacts[1].Phone)
	db.AssertExpectations(t)
}

func TestContactRepository_GetByIDs_EmptySkipsQuery(t *testing.T) {
	db := new(mockDBTX)
	repo := NewContactRepository(db)

	contacts, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, contacts)
	db.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}
