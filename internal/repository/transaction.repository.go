package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/pkg/pg"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a ledger entry does not exist.
var ErrNotFound = errors.New("transaction not found")

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// ListByAccount returns one page of ledger entries touching the account.
// Each direction dispatches to its own fixed parameterized query; results
// come back in primary-key order, which is insertion order, and are never
// re-sorted in memory.
func (r *TransactionRepository) ListByAccount(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})

	switch f.Direction {
	case model.DirectionWithdraw:
		q = q.Where("withdraw_account_id = ?", f.AccountID)
	case model.DirectionDeposit:
		q = q.Where("deposit_account_id = ?", f.AccountID)
	case model.DirectionAll:
		q = q.Where(
			r.Read(ctx).Where("withdraw_account_id = ?", f.AccountID).
				Or("deposit_account_id = ?", f.AccountID),
		)
	default:
		return nil, fmt.Errorf("unknown history direction %q", f.Direction)
	}

	page := f.Page
	if page < 0 {
		page = 0
	}

	var entities []*TransactionEntity
	err := q.Order("id").
		Limit(model.HistoryPageSize).
		Offset(page * model.HistoryPageSize).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toTransactionModels(entities), nil
}

// FindByID is a point lookup used by tests and the receipt pipeline.
func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toTransactionModel(&entity), nil
}
