package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/nimasrn/bank-ledger/internal/model"
	xhttp "github.com/nimasrn/bank-ledger/pkg/http"
)

type HistoryService interface {
	FindHistory(ctx context.Context, number int64, direction model.HistoryDirection, page int, userID int64) ([]*model.HistoryEntry, error)
}

type TransactionHandler struct {
	svc HistoryService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler, authn *AuthMiddleware) {
	e.GET("/accounts/{number}/transactions", authn.Protect(h.ListHistory))
}

func NewTransactionHandler(historyService HistoryService) *TransactionHandler {
	return &TransactionHandler{
		svc: historyService,
	}
}

type historyResponse struct {
	Items []*model.HistoryEntry `json:"items"`
	Page  int                   `json:"page"`
}

func (h *TransactionHandler) ListHistory(ctx *xhttp.RequestCtx) {
	number, err := pathInt64(ctx, "number")
	if err != nil {
		writeError(ctx, 400, "invalid account number")
		return
	}

	direction, err := model.ParseHistoryDirection(query(ctx, "type"))
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}

	page := 0
	if v := query(ctx, "page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(ctx, 400, "invalid page")
			return
		}
		page = n
	}

	items, err := h.svc.FindHistory(ctx, number, direction, page, authUserID(ctx))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, historyResponse{Items: items, Page: page})
}
