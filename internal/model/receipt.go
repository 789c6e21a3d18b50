package model

import "time"

// Receipt is the payload published to the notification queue once a
// ledger operation that carries a contact number has committed. It holds
// display fields only; balances never leave the ledger.
type Receipt struct {
	TransactionID int64           `json:"transaction_id"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"`
	Sender        string          `json:"sender"`
	Receiver      string          `json:"receiver"`
	Tel           string          `json:"tel"`
	CreatedAt     time.Time       `json:"created_at"`
}
