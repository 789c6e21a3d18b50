package repository

import (
	"time"

	"github.com/nimasrn/bank-ledger/internal/model"
)

type AccountEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Number    int64     `db:"number"     gorm:"column:number;not null;uniqueIndex"`
	Password  int64     `db:"password"   gorm:"column:password;not null"`
	Balance   int64     `db:"balance"    gorm:"column:balance;not null"`
	UserID    int64     `db:"user_id"    gorm:"column:user_id;not null;index"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (AccountEntity) TableName() string {
	return "accounts"
}

func toAccountEntity(m *model.Account) *AccountEntity {
	if m == nil {
		return nil
	}
	return &AccountEntity{
		ID:        m.ID,
		Number:    m.Number,
		Password:  m.Password,
		Balance:   m.Balance,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:        e.ID,
		Number:    e.Number,
		Password:  e.Password,
		Balance:   e.Balance,
		UserID:    e.UserID,
		CreatedAt: e.CreatedAt,
	}
}

func toAccountModels(entities []*AccountEntity) []*model.Account {
	if entities == nil {
		return nil
	}
	models := make([]*model.Account, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models
}
