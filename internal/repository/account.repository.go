package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account number already exists")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, acc *model.Account) (*model.Account, error) {
	entity := toAccountEntity(acc)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}

	return toAccountModel(entity), nil
}

func (r *AccountRepository) FindByNumber(ctx context.Context, number int64) (*model.Account, error) {
	var entity AccountEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("number = ?", number).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return toAccountModel(&entity), nil
}

// FindByNumberForUpdate locks the account row for the remainder of the
// surrounding transaction. Callers that touch more than one account must
// acquire locks in ascending account-number order.
func (r *AccountRepository) FindByNumberForUpdate(ctx context.Context, number int64) (*model.Account, error) {
	var entity AccountEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("number = ?", number).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return toAccountModel(&entity), nil
}

func (r *AccountRepository) FindByUser(ctx context.Context, userID int64) ([]*model.Account, error) {
	var entities []*AccountEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toAccountModels(entities), nil
}

// UpdateBalance writes an absolute balance previously computed under a
// row lock. A zero row count means the locked row disappeared underneath
// us and the surrounding transaction must be retried.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, balance int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ?", id).
		Update("balance", balance)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&AccountEntity{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
