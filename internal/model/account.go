package model

import (
	"errors"
	"time"
)

// StartingBalance is credited to every newly registered account.
const StartingBalance int64 = 1000

type Account struct {
	ID        int64     `json:"id"         db:"id"`
	Number    int64     `json:"number"     db:"number"`
	Password  int64     `json:"-"          db:"password"` // numeric PIN
	Balance   int64     `json:"balance"    db:"balance"`
	UserID    int64     `json:"user_id"    db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OwnedBy reports whether userID is the registered owner.
func (a *Account) OwnedBy(userID int64) bool {
	return a.UserID == userID
}

// PasswordMatches compares the stored PIN with the supplied one.
func (a *Account) PasswordMatches(password int64) bool {
	return a.Password == password
}

// AccountRegisterRequest is the input for opening a new account.
type AccountRegisterRequest struct {
	Number   int64
	Password int64
}

func (p AccountRegisterRequest) Validate() error {
	if p.Number <= 0 {
		return errors.New("account number is required")
	}
	if p.Password < 1000 || p.Password > 999999 {
		return errors.New("account password must be 4 to 6 digits")
	}
	return nil
}

// DepositRequest is the input for an ATM deposit. Tel receives the
// receipt notification and must be 11 digits without hyphens.
type DepositRequest struct {
	Number int64
	Amount int64
	Tel    string
}

func (p DepositRequest) Validate() error {
	if p.Number <= 0 {
		return errors.New("account number is required")
	}
	if !telPattern.MatchString(p.Tel) {
		return errors.New("tel must be 11 digits without hyphens")
	}
	return nil
}

type WithdrawRequest struct {
	Number   int64
	Password int64
	Amount   int64
}

func (p WithdrawRequest) Validate() error {
	if p.Number <= 0 {
		return errors.New("account number is required")
	}
	if p.Password <= 0 {
		return errors.New("account password is required")
	}
	return nil
}

type TransferRequest struct {
	WithdrawNumber   int64
	DepositNumber    int64
	WithdrawPassword int64
	Amount           int64
}

func (p TransferRequest) Validate() error {
	if p.WithdrawNumber <= 0 || p.DepositNumber <= 0 {
		return errors.New("both account numbers are required")
	}
	if p.WithdrawPassword <= 0 {
		return errors.New("account password is required")
	}
	return nil
}
