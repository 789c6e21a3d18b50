package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/bank-ledger/internal/model"
	xhttp "github.com/nimasrn/bank-ledger/pkg/http"
)

type LedgerService interface {
	RegisterAccount(ctx context.Context, p model.AccountRegisterRequest, userID int64) (*model.Account, error)
	ListAccounts(ctx context.Context, userID int64) (*model.User, []*model.Account, error)
	DeleteAccount(ctx context.Context, number int64, userID int64) error
	Deposit(ctx context.Context, p model.DepositRequest) (*model.Account, *model.Transaction, error)
	Withdraw(ctx context.Context, p model.WithdrawRequest, userID int64) (*model.Account, *model.Transaction, error)
	Transfer(ctx context.Context, p model.TransferRequest, userID int64) (*model.Account, *model.Transaction, error)
}

type AccountHandler struct {
	svc LedgerService
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler, authn *AuthMiddleware) {
	e.POST("/accounts", authn.Protect(h.RegisterAccount))
	e.GET("/accounts", authn.Protect(h.ListAccounts))
	e.DELETE("/accounts/{number}", authn.Protect(h.DeleteAccount))
	e.POST("/accounts/deposit", authn.Protect(h.Deposit))
	e.POST("/accounts/withdraw", authn.Protect(h.Withdraw))
	e.POST("/accounts/transfer", authn.Protect(h.Transfer))
}

func NewAccountHandler(ledgerService LedgerService) *AccountHandler {
	return &AccountHandler{
		svc: ledgerService,
	}
}

type registerAccountRequest struct {
	Number   int64 `json:"number"`
	Password int64 `json:"password"`
}

type depositRequest struct {
	Number int64  `json:"number"`
	Amount int64  `json:"amount"`
	Tel    string `json:"tel"`
}

type withdrawRequest struct {
	Number   int64 `json:"number"`
	Password int64 `json:"password"`
	Amount   int64 `json:"amount"`
}

type transferRequest struct {
	WithdrawNumber   int64 `json:"withdraw_number"`
	DepositNumber    int64 `json:"deposit_number"`
	WithdrawPassword int64 `json:"withdraw_password"`
	Amount           int64 `json:"amount"`
}

type accountResponse struct {
	Number  int64 `json:"number"`
	Balance int64 `json:"balance"`
}

type accountListResponse struct {
	Username string             `json:"username"`
	Items    []*accountResponse `json:"items"`
}

type transactionResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	Number        int64  `json:"number"`
	Balance       int64  `json:"balance"`
}

func toAccountResponse(a *model.Account) *accountResponse {
	return &accountResponse{Number: a.Number, Balance: a.Balance}
}

func toTransactionResponse(a *model.Account, tx *model.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Number:        a.Number,
		Balance:       a.Balance,
	}
}

/* --------------------------------- Routes ----------------------------------- */

func (h *AccountHandler) RegisterAccount(ctx *xhttp.RequestCtx) {
	var req registerAccountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.AccountRegisterRequest{
		Number:   req.Number,
		Password: req.Password,
	}
	acct, err := h.svc.RegisterAccount(ctx, p, authUserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, toAccountResponse(acct))
}

func (h *AccountHandler) ListAccounts(ctx *xhttp.RequestCtx) {
	user, accounts, err := h.svc.ListAccounts(ctx, authUserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	items := make([]*accountResponse, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, toAccountResponse(a))
	}
	writeJSON(ctx, 200, accountListResponse{Username: user.Username, Items: items})
}

func (h *AccountHandler) DeleteAccount(ctx *xhttp.RequestCtx) {
	number, err := pathInt64(ctx, "number")
	if err != nil {
		writeError(ctx, 400, "invalid account number")
		return
	}
	if err := h.svc.DeleteAccount(ctx, number, authUserID(ctx)); err != nil {
		serviceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(204)
}

func (h *AccountHandler) Deposit(ctx *xhttp.RequestCtx) {
	var req depositRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.DepositRequest{
		Number: req.Number,
		Amount: req.Amount,
		Tel:    req.Tel,
	}
	acct, entry, err := h.svc.Deposit(ctx, p)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, toTransactionResponse(acct, entry))
}

func (h *AccountHandler) Withdraw(ctx *xhttp.RequestCtx) {
	var req withdrawRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.WithdrawRequest{
		Number:   req.Number,
		Password: req.Password,
		Amount:   req.Amount,
	}
	acct, entry, err := h.svc.Withdraw(ctx, p, authUserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, toTransactionResponse(acct, entry))
}

func (h *AccountHandler) Transfer(ctx *xhttp.RequestCtx) {
	var req transferRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.TransferRequest{
		WithdrawNumber:   req.WithdrawNumber,
		DepositNumber:    req.DepositNumber,
		WithdrawPassword: req.WithdrawPassword,
		Amount:           req.Amount,
	}
	acct, entry, err := h.svc.Transfer(ctx, p, authUserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, toTransactionResponse(acct, entry))
}
