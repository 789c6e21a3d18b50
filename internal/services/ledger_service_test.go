package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/internal/repository"
	"github.com/nimasrn/bank-ledger/pkg/pg"
	"github.com/nimasrn/bank-ledger/test/fixtures"
	"github.com/nimasrn/bank-ledger/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	db      *pg.DB
	svc     *LedgerService
	history *HistoryService
}

// setupLedger wires the engine against an in-memory store with users U1
// and U2 owning accounts 1001 and 2001.
func setupLedger(t *testing.T) *ledgerFixture {
	db := helpers.SetupTestDB(t)

	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	userRepo := repository.NewUserRepository(db)

	helpers.CreateTestUser(t, db, 1, "ssar")
	helpers.CreateTestUser(t, db, 2, "cos")
	helpers.CreateTestAccount(t, db, 1001, fixtures.TestAccountPin, model.StartingBalance, 1)
	helpers.CreateTestAccount(t, db, 2001, fixtures.TestAccountPin, model.StartingBalance, 2)

	return &ledgerFixture{
		db:      db,
		svc:     NewLedgerService(accountRepo, transactionRepo, userRepo, nil),
		history: NewHistoryService(accountRepo, transactionRepo),
	}
}

func (f *ledgerFixture) balance(t *testing.T, number int64) int64 {
	t.Helper()
	var entity repository.AccountEntity
	err := f.db.Read(context.Background()).Where("number = ?", number).First(&entity).Error
	require.NoError(t, err)
	return entity.Balance
}

func (f *ledgerFixture) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	err := f.db.Read(context.Background()).Model(&repository.TransactionEntity{}).Count(&count).Error
	require.NoError(t, err)
	return count
}

func TestLedgerService_RegisterAccount(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("starts with the fixed balance", func(t *testing.T) {
		acc, err := f.svc.RegisterAccount(ctx, model.AccountRegisterRequest{Number: 3001, Password: 1234}, 1)
		require.NoError(t, err)
		assert.Equal(t, model.StartingBalance, acc.Balance)
		assert.Equal(t, int64(1), acc.UserID)
	})

	t.Run("duplicate number", func(t *testing.T) {
		_, err := f.svc.RegisterAccount(ctx, model.AccountRegisterRequest{Number: 1001, Password: 1234}, 1)
		assert.ErrorIs(t, err, ErrDuplicateAccount)
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := f.svc.RegisterAccount(ctx, model.AccountRegisterRequest{Number: 4001, Password: 1234}, 404)
		assert.ErrorIs(t, err, ErrOwnerNotFound)
	})
}

func TestLedgerService_Deposit(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("credits and records the entry", func(t *testing.T) {
		acc, entry, err := f.svc.Deposit(ctx, fixtures.DepositRequest(1001, 100))
		require.NoError(t, err)

		assert.Equal(t, int64(1100), acc.Balance)
		assert.Equal(t, model.TransactionDeposit, entry.Type)
		assert.Equal(t, model.CounterpartyATM, entry.Sender)
		assert.Equal(t, "1001", entry.Receiver)
		assert.Equal(t, fixtures.TestTel, entry.Tel)
		require.NotNil(t, entry.DepositBalance)
		assert.Equal(t, int64(1100), *entry.DepositBalance)
		assert.Nil(t, entry.WithdrawAccountID)
		assert.Nil(t, entry.WithdrawBalance)
	})

	t.Run("no ownership check by design", func(t *testing.T) {
		// anyone who knows the number can deposit; there is no caller
		// identity on this path at all
		acc, _, err := f.svc.Deposit(ctx, fixtures.DepositRequest(2001, 50))
		require.NoError(t, err)
		assert.Equal(t, int64(1050), acc.Balance)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		for _, amount := range []int64{0, -100} {
			_, _, err := f.svc.Deposit(ctx, fixtures.DepositRequest(1001, amount))
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
	})

	t.Run("amount checked before existence", func(t *testing.T) {
		_, _, err := f.svc.Deposit(ctx, fixtures.DepositRequest(9999, 0))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("missing account", func(t *testing.T) {
		_, _, err := f.svc.Deposit(ctx, fixtures.DepositRequest(9999, 100))
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestLedgerService_Withdraw(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("debits and records the entry", func(t *testing.T) {
		acc, entry, err := f.svc.Withdraw(ctx, fixtures.WithdrawRequest(1001, 100), 1)
		require.NoError(t, err)

		assert.Equal(t, int64(900), acc.Balance)
		assert.Equal(t, model.TransactionWithdraw, entry.Type)
		assert.Equal(t, "1001", entry.Sender)
		assert.Equal(t, model.CounterpartyATM, entry.Receiver)
		require.NotNil(t, entry.WithdrawBalance)
		assert.Equal(t, int64(900), *entry.WithdrawBalance)
		assert.Nil(t, entry.DepositAccountID)
	})

	t.Run("wrong pin leaves balance untouched", func(t *testing.T) {
		before := f.balance(t, 1001)
		_, _, err := f.svc.Withdraw(ctx, model.WithdrawRequest{Number: 1001, Password: 9999, Amount: 100}, 1)
		assert.ErrorIs(t, err, ErrWrongPin)
		assert.Equal(t, before, f.balance(t, 1001))
	})

	t.Run("not the owner", func(t *testing.T) {
		_, _, err := f.svc.Withdraw(ctx, fixtures.WithdrawRequest(1001, 100), 2)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		before := f.balance(t, 1001)
		_, _, err := f.svc.Withdraw(ctx, fixtures.WithdrawRequest(1001, before+1000), 1)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, before, f.balance(t, 1001))
	})

	t.Run("rejects a missing password before touching the row", func(t *testing.T) {
		before := f.balance(t, 1001)
		_, _, err := f.svc.Withdraw(ctx, model.WithdrawRequest{Number: 1001, Amount: 50}, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password")
		assert.Equal(t, before, f.balance(t, 1001))
	})

	t.Run("owner check precedes pin check", func(t *testing.T) {
		_, _, err := f.svc.Withdraw(ctx, model.WithdrawRequest{Number: 1001, Password: 9999, Amount: 100}, 2)
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestLedgerService_Transfer(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("conserves the transferred amount", func(t *testing.T) {
		fromBefore := f.balance(t, 1001)
		toBefore := f.balance(t, 2001)

		acc, entry, err := f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 2001, 100), 1)
		require.NoError(t, err)

		assert.Equal(t, fromBefore-100, f.balance(t, 1001))
		assert.Equal(t, toBefore+100, f.balance(t, 2001))
		assert.Equal(t, fromBefore-f.balance(t, 1001), f.balance(t, 2001)-toBefore)

		// response is scoped to the source account
		assert.Equal(t, int64(1001), acc.Number)
		assert.Equal(t, fromBefore-100, acc.Balance)

		assert.Equal(t, model.TransactionTransfer, entry.Type)
		assert.Equal(t, "1001", entry.Sender)
		assert.Equal(t, "2001", entry.Receiver)
		require.NotNil(t, entry.WithdrawBalance)
		require.NotNil(t, entry.DepositBalance)
		assert.Equal(t, fromBefore-100, *entry.WithdrawBalance)
		assert.Equal(t, toBefore+100, *entry.DepositBalance)
	})

	t.Run("same account rejected before anything else", func(t *testing.T) {
		_, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 1001, -5), 1)
		assert.ErrorIs(t, err, ErrSameAccount)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 2001, 0), 1)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects a missing destination number", func(t *testing.T) {
		_, _, err := f.svc.Transfer(ctx, model.TransferRequest{
			WithdrawNumber:   1001,
			WithdrawPassword: fixtures.TestAccountPin,
			Amount:           50,
		}, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account numbers")
	})

	t.Run("failed transfer changes nothing", func(t *testing.T) {
		fromBefore := f.balance(t, 1001)
		toBefore := f.balance(t, 2001)
		entriesBefore := f.ledgerCount(t)

		_, _, err := f.svc.Transfer(ctx, model.TransferRequest{
			WithdrawNumber:   1001,
			DepositNumber:    2001,
			WithdrawPassword: 9999,
			Amount:           100,
		}, 1)
		assert.ErrorIs(t, err, ErrWrongPin)

		assert.Equal(t, fromBefore, f.balance(t, 1001))
		assert.Equal(t, toBefore, f.balance(t, 2001))
		assert.Equal(t, entriesBefore, f.ledgerCount(t))
	})

	t.Run("missing destination resolved before mutating source", func(t *testing.T) {
		fromBefore := f.balance(t, 1001)
		_, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 9999, 100), 1)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.Equal(t, fromBefore, f.balance(t, 1001))
	})

	t.Run("only source ownership matters", func(t *testing.T) {
		// U1 sends to U2's account without owning it
		_, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 2001, 10), 1)
		assert.NoError(t, err)

		// U2 cannot send from U1's account
		_, _, err = f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 2001, 10), 2)
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestLedgerService_DeleteAccount(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("missing account", func(t *testing.T) {
		err := f.svc.DeleteAccount(ctx, 9999, 1)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("not the owner", func(t *testing.T) {
		err := f.svc.DeleteAccount(ctx, 1001, 2)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("ledger survives the delete", func(t *testing.T) {
		_, entry, err := f.svc.Deposit(ctx, fixtures.DepositRequest(1001, 100))
		require.NoError(t, err)

		err = f.svc.DeleteAccount(ctx, 1001, 1)
		require.NoError(t, err)

		_, _, err = f.svc.Deposit(ctx, fixtures.DepositRequest(1001, 100))
		assert.ErrorIs(t, err, ErrAccountNotFound)

		// the snapshot written at commit time is still there, even
		// though its account reference now dangles
		transactionRepo := repository.NewTransactionRepository(f.db)
		kept, err := transactionRepo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		require.NotNil(t, kept.DepositBalance)
		assert.Equal(t, *entry.DepositBalance, *kept.DepositBalance)
	})
}

// TestLedgerService_BalanceNeverNegative drives a mixed operation
// sequence and checks the invariant after every step: committed
// operations keep balances non-negative, rejected ones change nothing.
func TestLedgerService_BalanceNeverNegative(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, _, err := f.svc.Deposit(ctx, fixtures.DepositRequest(1001, 500)); return err },
		func() error { _, _, err := f.svc.Withdraw(ctx, fixtures.WithdrawRequest(1001, 1500), 1); return err },
		func() error { _, _, err := f.svc.Withdraw(ctx, fixtures.WithdrawRequest(1001, 1), 1); return err },
		func() error { _, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(2001, 1001, 1000), 2); return err },
		func() error { _, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(2001, 1001, 1), 2); return err },
		func() error { _, _, err := f.svc.Withdraw(ctx, fixtures.WithdrawRequest(2001, 999), 2); return err },
		func() error { _, _, err := f.svc.Transfer(ctx, fixtures.TransferRequest(1001, 2001, 5000), 1); return err },
	}

	for i, step := range steps {
		err := step()
		if err != nil {
			assert.Truef(t,
				errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAmount),
				"step %d failed with unexpected error: %v", i, err)
		}
		assert.GreaterOrEqualf(t, f.balance(t, 1001), int64(0), "step %d broke the invariant on 1001", i)
		assert.GreaterOrEqualf(t, f.balance(t, 2001), int64(0), "step %d broke the invariant on 2001", i)
	}
}

func TestLedgerService_SnapshotsAreImmutable(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	_, first, err := f.svc.Deposit(ctx, fixtures.DepositRequest(1001, 100))
	require.NoError(t, err)
	require.Equal(t, int64(1100), *first.DepositBalance)

	// later activity must not rewrite the earlier snapshot
	_, _, err = f.svc.Withdraw(ctx, fixtures.WithdrawRequest(1001, 600), 1)
	require.NoError(t, err)
	_, _, err = f.svc.Deposit(ctx, fixtures.DepositRequest(1001, 42))
	require.NoError(t, err)

	transactionRepo := repository.NewTransactionRepository(f.db)
	kept, err := transactionRepo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), *kept.DepositBalance)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, acc *model.Account) (*model.Account, error) {
	args := m.Called(ctx, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepository) FindByNumber(ctx context.Context, number int64) (*model.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepository) FindByNumberForUpdate(ctx context.Context, number int64) (*model.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockAccountRepository) FindByUser(ctx context.Context, userID int64) ([]*model.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

func (m *mockAccountRepository) UpdateBalance(ctx context.Context, id int64, balance int64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *mockAccountRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// TestLedgerService_ConflictAfterRetries exhausts the bounded retry and
// expects the contention to surface as ErrConflict, not as an unbounded
// loop or a raw storage error.
func TestLedgerService_ConflictAfterRetries(t *testing.T) {
	accountRepo := new(mockAccountRepository)
	svc := NewLedgerService(accountRepo, nil, nil, nil)
	ctx := context.Background()

	accountRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
		Return(repository.ErrConcurrentUpdate).
		Times(maxCommitAttempts)

	_, _, err := svc.Deposit(ctx, fixtures.DepositRequest(1001, 100))
	assert.ErrorIs(t, err, ErrConflict)
	accountRepo.AssertExpectations(t)
}

type mockReceiptPublisher struct {
	mock.Mock
}

func (m *mockReceiptPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}

func TestLedgerService_DepositPublishesReceipt(t *testing.T) {
	db := helpers.SetupTestDB(t)
	helpers.CreateTestUser(t, db, 1, "ssar")
	helpers.CreateTestAccount(t, db, 1001, fixtures.TestAccountPin, model.StartingBalance, 1)

	receipts := new(mockReceiptPublisher)
	svc := NewLedgerService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewUserRepository(db),
		receipts,
	)
	ctx := context.Background()

	receipts.On("PublishJSON", ctx, mock.MatchedBy(func(v interface{}) bool {
		r, ok := v.(*model.Receipt)
		return ok && r.Tel == fixtures.TestTel && r.Type == model.TransactionDeposit && r.Amount == 100
	}), mock.Anything).Return("1-0", nil)

	_, _, err := svc.Deposit(ctx, fixtures.DepositRequest(1001, 100))
	require.NoError(t, err)
	receipts.AssertExpectations(t)
}
