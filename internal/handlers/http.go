package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/nimasrn/bank-ledger/internal/repository"
	"github.com/nimasrn/bank-ledger/internal/services"
	xhttp "github.com/nimasrn/bank-ledger/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

// statusOf maps service errors onto HTTP status codes. Anything not
// recognized is treated as a bad request.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrOwnerNotFound),
		errors.Is(err, repository.ErrNotFound):
		return 404
	case errors.Is(err, services.ErrDuplicateAccount),
		errors.Is(err, services.ErrDuplicateUsername),
		errors.Is(err, services.ErrConflict):
		return 409
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrWrongPin):
		return 403
	case errors.Is(err, services.ErrLoginFailed):
		return 401
	default:
		return 400
	}
}

func serviceError(ctx *xhttp.RequestCtx, err error) {
	writeError(ctx, statusOf(err), err.Error())
}
