package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/internal/repository"
	"github.com/nimasrn/bank-ledger/pkg/logger"
	"github.com/nimasrn/bank-ledger/pkg/prom"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrDuplicateAccount  = errors.New("account number already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrOwnerNotFound     = errors.New("owner not found")
	ErrNotOwner          = errors.New("not the account owner")
	ErrWrongPin          = errors.New("account password does not match")
	ErrInsufficientFunds = errors.New("insufficient account balance")
	ErrSameAccount       = errors.New("cannot transfer to the same account")
	ErrConflict          = errors.New("operation aborted by concurrent update")
)

type AccountRepository interface {
	Create(ctx context.Context, acc *model.Account) (*model.Account, error)
	FindByNumber(ctx context.Context, number int64) (*model.Account, error)
	FindByNumberForUpdate(ctx context.Context, number int64) (*model.Account, error)
	FindByUser(ctx context.Context, userID int64) ([]*model.Account, error)
	UpdateBalance(ctx context.Context, id int64, balance int64) error
	Delete(ctx context.Context, id int64) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	ListByAccount(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// ReceiptPublisher pushes committed movements onto the notification
// queue. The queue package's Queue satisfies it.
type ReceiptPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// LedgerService mutates account balances and appends the matching ledger
// entries. Every operation runs as one database transaction: the balance
// change(s) and the ledger entry commit together or not at all.
type LedgerService struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	userRepo        UserRepository
	receipts        ReceiptPublisher
}

func NewLedgerService(accountRepo AccountRepository, transactionRepo TransactionRepository, userRepo UserRepository, receipts ReceiptPublisher) *LedgerService {
	return &LedgerService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		receipts:        receipts,
	}
}

const maxCommitAttempts = 3
const commitRetryBaseDelay = 2 * time.Millisecond

func observeOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	prom.ObserveLedgerOperation(op, result, time.Since(start).Seconds())
}

// withinTransactionRetry reruns fn in a fresh transaction when the commit
// lost a row-version race. Business errors pass through untouched; after
// the attempts are exhausted the caller gets ErrConflict.
func (s *LedgerService) withinTransactionRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := s.accountRepo.WithinTransaction(ctx, fn)
		if err == nil || !errors.Is(err, repository.ErrConcurrentUpdate) {
			return err
		}

		if attempt+1 >= maxCommitAttempts {
			return ErrConflict
		}

		delay := commitRetryBaseDelay * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RegisterAccount opens a new account for userID credited with the fixed
// starting balance.
func (s *LedgerService) RegisterAccount(ctx context.Context, p model.AccountRegisterRequest, userID int64) (*model.Account, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var created *model.Account
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrOwnerNotFound
			}
			return err
		}

		_, err := s.accountRepo.FindByNumber(ctx, p.Number)
		if err == nil {
			return ErrDuplicateAccount
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}

		// The unique index closes the check-then-create race.
		created, err = s.accountRepo.Create(ctx, &model.Account{
			Number:   p.Number,
			Password: p.Password,
			Balance:  model.StartingBalance,
			UserID:   userID,
		})
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return ErrDuplicateAccount
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListAccounts returns every account owned by userID.
func (s *LedgerService) ListAccounts(ctx context.Context, userID int64) (*model.User, []*model.Account, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrOwnerNotFound
		}
		return nil, nil, err
	}

	accounts, err := s.accountRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, accounts, nil
}

// DeleteAccount hard-deletes the account. Ledger entries referencing it
// are left in place; their snapshots stay authoritative.
func (s *LedgerService) DeleteAccount(ctx context.Context, number int64, userID int64) error {
	return s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		// Lock so the delete serializes with in-flight movements.
		acc, err := s.accountRepo.FindByNumberForUpdate(ctx, number)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		if !acc.OwnedBy(userID) {
			return ErrNotOwner
		}

		return s.accountRepo.Delete(ctx, acc.ID)
	})
}

// Deposit credits the account. There is deliberately no owner or PIN
// check: anyone who knows the account number can pay into it, as at a
// physical ATM.
func (s *LedgerService) Deposit(ctx context.Context, p model.DepositRequest) (*model.Account, *model.Transaction, error) {
	if p.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		account *model.Account
		entry   *model.Transaction
		start   = time.Now()
	)
	err := s.withinTransactionRetry(ctx, func(ctx context.Context) error {
		acc, err := s.accountRepo.FindByNumberForUpdate(ctx, p.Number)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		newBalance := acc.Balance + p.Amount
		if err := s.accountRepo.UpdateBalance(ctx, acc.ID, newBalance); err != nil {
			return err
		}
		acc.Balance = newBalance

		entry, err = s.transactionRepo.Create(ctx, &model.Transaction{
			Type:             model.TransactionDeposit,
			Amount:           p.Amount,
			DepositAccountID: &acc.ID,
			DepositBalance:   &newBalance,
			Sender:           model.CounterpartyATM,
			Receiver:         strconv.FormatInt(acc.Number, 10),
			Tel:              p.Tel,
		})
		if err != nil {
			return err
		}

		account = acc
		return nil
	})
	observeOperation("deposit", start, err)
	if err != nil {
		return nil, nil, err
	}

	s.publishReceipt(ctx, entry)
	return account, entry, nil
}

// Withdraw debits the account after owner, PIN, and balance checks, in
// that order. All checks run before any mutation.
func (s *LedgerService) Withdraw(ctx context.Context, p model.WithdrawRequest, userID int64) (*model.Account, *model.Transaction, error) {
	if p.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		account *model.Account
		entry   *model.Transaction
		start   = time.Now()
	)
	err := s.withinTransactionRetry(ctx, func(ctx context.Context) error {
		acc, err := s.accountRepo.FindByNumberForUpdate(ctx, p.Number)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		if !acc.OwnedBy(userID) {
			return ErrNotOwner
		}
		if !acc.PasswordMatches(p.Password) {
			return ErrWrongPin
		}
		if acc.Balance < p.Amount {
			return ErrInsufficientFunds
		}

		newBalance := acc.Balance - p.Amount
		if err := s.accountRepo.UpdateBalance(ctx, acc.ID, newBalance); err != nil {
			return err
		}
		acc.Balance = newBalance

		entry, err = s.transactionRepo.Create(ctx, &model.Transaction{
			Type:              model.TransactionWithdraw,
			Amount:            p.Amount,
			WithdrawAccountID: &acc.ID,
			WithdrawBalance:   &newBalance,
			Sender:            strconv.FormatInt(acc.Number, 10),
			Receiver:          model.CounterpartyATM,
		})
		if err != nil {
			return err
		}

		account = acc
		return nil
	})
	observeOperation("withdraw", start, err)
	if err != nil {
		return nil, nil, err
	}
	return account, entry, nil
}

// Transfer moves amount between two accounts and appends a single
// TRANSFER entry holding both post-balances. Only the source side is
// owner- and PIN-checked, and only the source side is returned.
func (s *LedgerService) Transfer(ctx context.Context, p model.TransferRequest, userID int64) (*model.Account, *model.Transaction, error) {
	if p.WithdrawNumber == p.DepositNumber {
		return nil, nil, ErrSameAccount
	}
	if p.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		account *model.Account
		entry   *model.Transaction
		start   = time.Now()
	)
	err := s.withinTransactionRetry(ctx, func(ctx context.Context) error {
		// Lock both rows in ascending number order so two opposing
		// transfers over the same pair cannot deadlock.
		first, second := p.WithdrawNumber, p.DepositNumber
		if second < first {
			first, second = second, first
		}

		byNumber := make(map[int64]*model.Account, 2)
		for _, number := range []int64{first, second} {
			acc, err := s.accountRepo.FindByNumberForUpdate(ctx, number)
			if err != nil {
				if errors.Is(err, repository.ErrAccountNotFound) {
					return ErrAccountNotFound
				}
				return err
			}
			byNumber[number] = acc
		}
		from := byNumber[p.WithdrawNumber]
		to := byNumber[p.DepositNumber]

		if !from.OwnedBy(userID) {
			return ErrNotOwner
		}
		if !from.PasswordMatches(p.WithdrawPassword) {
			return ErrWrongPin
		}
		if from.Balance < p.Amount {
			return ErrInsufficientFunds
		}

		fromBalance := from.Balance - p.Amount
		toBalance := to.Balance + p.Amount
		if err := s.accountRepo.UpdateBalance(ctx, from.ID, fromBalance); err != nil {
			return err
		}
		if err := s.accountRepo.UpdateBalance(ctx, to.ID, toBalance); err != nil {
			return err
		}
		from.Balance = fromBalance
		to.Balance = toBalance

		var err error
		entry, err = s.transactionRepo.Create(ctx, &model.Transaction{
			Type:              model.TransactionTransfer,
			Amount:            p.Amount,
			WithdrawAccountID: &from.ID,
			DepositAccountID:  &to.ID,
			WithdrawBalance:   &fromBalance,
			DepositBalance:    &toBalance,
			Sender:            strconv.FormatInt(from.Number, 10),
			Receiver:          strconv.FormatInt(to.Number, 10),
		})
		if err != nil {
			return err
		}

		account = from
		return nil
	})
	observeOperation("transfer", start, err)
	if err != nil {
		return nil, nil, err
	}
	return account, entry, nil
}

// publishReceipt hands a committed entry to the notification queue.
// The ledger write is already final, so a queue failure is only logged.
func (s *LedgerService) publishReceipt(ctx context.Context, entry *model.Transaction) {
	if s.receipts == nil || entry.Tel == "" {
		return
	}

	_, err := s.receipts.PublishJSON(ctx, &model.Receipt{
		TransactionID: entry.ID,
		Type:          entry.Type,
		Amount:        entry.Amount,
		Sender:        entry.Sender,
		Receiver:      entry.Receiver,
		Tel:           entry.Tel,
		CreatedAt:     entry.CreatedAt,
	}, nil)
	if err != nil {
		logger.Error("failed to publish receipt", "transaction_id", entry.ID, "error", err)
	}
}
