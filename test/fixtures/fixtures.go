package fixtures

import (
	"github.com/nimasrn/bank-ledger/internal/model"
)

const (
	TestTel        = "01012345678"
	TestAccountPin = int64(1234)
)

var (
	TestUserSsar = model.User{
		ID:       1,
		Username: "ssar",
		Email:    "ssar@bank.test",
		Fullname: "Ssar Kim",
		Role:     model.RoleCustomer,
	}

	TestUserCos = model.User{
		ID:       2,
		Username: "cos",
		Email:    "cos@bank.test",
		Fullname: "Cos Lee",
		Role:     model.RoleCustomer,
	}
)

func NewTestAccount(number, userID int64) *model.Account {
	return &model.Account{
		Number:   number,
		Password: TestAccountPin,
		Balance:  model.StartingBalance,
		UserID:   userID,
	}
}

func DepositRequest(number, amount int64) model.DepositRequest {
	return model.DepositRequest{
		Number: number,
		Amount: amount,
		Tel:    TestTel,
	}
}

func WithdrawRequest(number, amount int64) model.WithdrawRequest {
	return model.WithdrawRequest{
		Number:   number,
		Password: TestAccountPin,
		Amount:   amount,
	}
}

func TransferRequest(from, to, amount int64) model.TransferRequest {
	return model.TransferRequest{
		WithdrawNumber:   from,
		DepositNumber:    to,
		WithdrawPassword: TestAccountPin,
		Amount:           amount,
	}
}

func JoinRequest(username string) model.JoinRequest {
	return model.JoinRequest{
		Username: username,
		Password: "password1234",
		Email:    username + "@bank.test",
		Fullname: username,
	}
}
