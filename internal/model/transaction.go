package model

import (
	"fmt"
	"time"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionWithdraw TransactionType = "WITHDRAW"
	TransactionDeposit  TransactionType = "DEPOSIT"
	TransactionTransfer TransactionType = "TRANSFER"
)

// CounterpartyATM is the display name used for cash movements that have
// no account on the other side.
const CounterpartyATM = "ATM"

// Transaction is one immutable ledger entry. The balance snapshots are
// captured at commit time and never recomputed; the account references
// carry no foreign-key constraint so history survives account deletion.
type Transaction struct {
	ID                int64           `json:"id"                 db:"id"`
	Type              TransactionType `json:"type"               db:"type"`
	Amount            int64           `json:"amount"             db:"amount"`
	WithdrawAccountID *int64          `json:"-"                  db:"withdraw_account_id"`
	DepositAccountID  *int64          `json:"-"                  db:"deposit_account_id"`
	WithdrawBalance   *int64          `json:"-"                  db:"withdraw_balance"`
	DepositBalance    *int64          `json:"-"                  db:"deposit_balance"`
	Sender            string          `json:"sender"             db:"tx_sender"`
	Receiver          string          `json:"receiver"           db:"tx_receiver"`
	Tel               string          `json:"tel,omitempty"      db:"tx_tel"`
	CreatedAt         time.Time       `json:"created_at"         db:"created_at"`
}

// HistoryDirection selects which side of the ledger an account history
// query matches on.
type HistoryDirection string

const (
	DirectionWithdraw HistoryDirection = "WITHDRAW"
	DirectionDeposit  HistoryDirection = "DEPOSIT"
	DirectionAll      HistoryDirection = "ALL"
)

func ParseHistoryDirection(s string) (HistoryDirection, error) {
	switch HistoryDirection(s) {
	case DirectionWithdraw, DirectionDeposit, DirectionAll:
		return HistoryDirection(s), nil
	case "":
		return DirectionAll, nil
	}
	return "", fmt.Errorf("unknown history direction %q", s)
}

// HistoryPageSize is the fixed page size of account history queries.
const HistoryPageSize = 5

// TransactionFilter controls ledger history queries. Page is zero-based.
type TransactionFilter struct {
	AccountID int64
	Direction HistoryDirection
	Page      int
}

// HistoryEntry pairs a ledger entry with the post-transaction balance of
// the account the history was requested for, as opposed to the
// counterparty's balance on a transfer.
type HistoryEntry struct {
	ID       int64           `json:"id"`
	Type     TransactionType `json:"type"`
	Amount   int64           `json:"amount"`
	Sender   string          `json:"sender"`
	Receiver string          `json:"receiver"`
	Tel      string          `json:"tel"`
	Balance  int64           `json:"balance"`
}
