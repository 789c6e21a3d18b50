package repository

import (
	"time"

	"github.com/nimasrn/bank-ledger/internal/model"
)

// TransactionEntity rows are append-only. The account reference columns
// deliberately carry no foreign-key constraint: deleting an account must
// leave its ledger history intact, with the balance snapshots staying
// authoritative.
type TransactionEntity struct {
	ID                int64     `db:"id"                  gorm:"primaryKey;autoIncrement;column:id"`
	Type              string    `db:"type"                gorm:"column:type;not null"`
	Amount            int64     `db:"amount"              gorm:"column:amount;not null"`
	WithdrawAccountID *int64    `db:"withdraw_account_id" gorm:"column:withdraw_account_id;index"`
	DepositAccountID  *int64    `db:"deposit_account_id"  gorm:"column:deposit_account_id;index"`
	WithdrawBalance   *int64    `db:"withdraw_balance"    gorm:"column:withdraw_balance"`
	DepositBalance    *int64    `db:"deposit_balance"     gorm:"column:deposit_balance"`
	Sender            string    `db:"tx_sender"           gorm:"column:tx_sender;not null"`
	Receiver          string    `db:"tx_receiver"         gorm:"column:tx_receiver;not null"`
	Tel               string    `db:"tx_tel"              gorm:"column:tx_tel"`
	CreatedAt         time.Time `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:                m.ID,
		Type:              string(m.Type),
		Amount:            m.Amount,
		WithdrawAccountID: m.WithdrawAccountID,
		DepositAccountID:  m.DepositAccountID,
		WithdrawBalance:   m.WithdrawBalance,
		DepositBalance:    m.DepositBalance,
		Sender:            m.Sender,
		Receiver:          m.Receiver,
		Tel:               m.Tel,
		CreatedAt:         m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:                e.ID,
		Type:              model.TransactionType(e.Type),
		Amount:            e.Amount,
		WithdrawAccountID: e.WithdrawAccountID,
		DepositAccountID:  e.DepositAccountID,
		WithdrawBalance:   e.WithdrawBalance,
		DepositBalance:    e.DepositBalance,
		Sender:            e.Sender,
		Receiver:          e.Receiver,
		Tel:               e.Tel,
		CreatedAt:         e.CreatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
