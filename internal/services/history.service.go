package services

import (
	"context"
	"errors"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/internal/repository"
)

// HistoryService is a read-only projection over the ledger. It never
// locks rows and never re-sorts what the store returns.
type HistoryService struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

func NewHistoryService(accountRepo AccountRepository, transactionRepo TransactionRepository) *HistoryService {
	return &HistoryService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// FindHistory returns one page of the account's ledger entries, each
// paired with that account's post-transaction balance. Only the owner may
// read an account's history.
func (s *HistoryService) FindHistory(ctx context.Context, number int64, direction model.HistoryDirection, page int, userID int64) ([]*model.HistoryEntry, error) {
	acc, err := s.accountRepo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if !acc.OwnedBy(userID) {
		return nil, ErrNotOwner
	}

	txns, err := s.transactionRepo.ListByAccount(ctx, model.TransactionFilter{
		AccountID: acc.ID,
		Direction: direction,
		Page:      page,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*model.HistoryEntry, len(txns))
	for i, txn := range txns {
		entries[i] = &model.HistoryEntry{
			ID:       txn.ID,
			Type:     txn.Type,
			Amount:   txn.Amount,
			Sender:   txn.Sender,
			Receiver: txn.Receiver,
			Tel:      telOrNone(txn.Tel),
			Balance:  relativeBalance(txn, acc.ID),
		}
	}
	return entries, nil
}

// relativeBalance picks the snapshot belonging to the queried account:
// the only populated side for a deposit or withdrawal, and the matching
// side for a transfer.
func relativeBalance(txn *model.Transaction, accountID int64) int64 {
	switch {
	case txn.DepositAccountID == nil:
		return deref(txn.WithdrawBalance)
	case txn.WithdrawAccountID == nil:
		return deref(txn.DepositBalance)
	case *txn.DepositAccountID == accountID:
		return deref(txn.DepositBalance)
	default:
		return deref(txn.WithdrawBalance)
	}
}

func telOrNone(tel string) string {
	if tel == "" {
		return "none"
	}
	return tel
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
