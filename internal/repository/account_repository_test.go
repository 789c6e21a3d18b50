package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	t.Run("create account", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Account{
			Number:   1001,
			Password: 1234,
			Balance:  model.StartingBalance,
			UserID:   1,
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, int64(1001), created.Number)
		assert.Equal(t, model.StartingBalance, created.Balance)
	})

	t.Run("duplicate number", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Account{
			Number:   1001,
			Password: 9999,
			Balance:  model.StartingBalance,
			UserID:   2,
		})
		assert.ErrorIs(t, err, ErrDuplicateAccount)
	})
}

func TestAccountRepository_FindByNumber(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Account{Number: 1001, Password: 1234, Balance: 1000, UserID: 1})
	require.NoError(t, err)

	t.Run("existing account", func(t *testing.T) {
		acc, err := repo.FindByNumber(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, int64(1001), acc.Number)
		assert.Equal(t, int64(1), acc.UserID)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := repo.FindByNumber(ctx, 9999)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("locked read sees same row", func(t *testing.T) {
		acc, err := repo.FindByNumberForUpdate(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), acc.Balance)
	})
}

func TestAccountRepository_FindByUser(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	for _, n := range []int64{1001, 1002} {
		_, err := repo.Create(ctx, &model.Account{Number: n, Password: 1234, Balance: 1000, UserID: 1})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &model.Account{Number: 2001, Password: 1234, Balance: 1000, UserID: 2})
	require.NoError(t, err)

	accounts, err := repo.FindByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(1001), accounts[0].Number)
	assert.Equal(t, int64(1002), accounts[1].Number)

	accounts, err = repo.FindByUser(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Account{Number: 1001, Password: 1234, Balance: 1000, UserID: 1})
	require.NoError(t, err)

	t.Run("persists new balance", func(t *testing.T) {
		err := repo.UpdateBalance(ctx, created.ID, 700)
		require.NoError(t, err)

		acc, err := repo.FindByNumber(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, int64(700), acc.Balance)
	})

	t.Run("vanished row reports conflict", func(t *testing.T) {
		err := repo.UpdateBalance(ctx, 404, 100)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
	})
}

func TestAccountRepository_Delete(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewAccountRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Account{Number: 1001, Password: 1234, Balance: 1000, UserID: 1})
	require.NoError(t, err)

	err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)

	_, err = repo.FindByNumber(ctx, 1001)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
