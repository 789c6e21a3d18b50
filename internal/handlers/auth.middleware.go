package handlers

import (
	"strings"

	"github.com/nimasrn/bank-ledger/internal/auth"
	"github.com/nimasrn/bank-ledger/internal/model"
	xhttp "github.com/nimasrn/bank-ledger/pkg/http"
)

const (
	ctxUserIDKey   = "auth_user_id"
	ctxUserRoleKey = "auth_user_role"
)

type TokenVerifier interface {
	Verify(token string) (int64, model.UserRole, error)
}

// AuthMiddleware guards routes that act on behalf of a user. The verified
// token's id and role are stashed on the request context for handlers.
type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) Protect(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		header := string(ctx.Request.Header.Peek(auth.HeaderKey))
		if !strings.HasPrefix(header, auth.TokenPrefix) {
			writeError(ctx, 401, "missing bearer token")
			return
		}
		userID, role, err := m.tokens.Verify(strings.TrimPrefix(header, auth.TokenPrefix))
		if err != nil {
			writeError(ctx, 401, "invalid token")
			return
		}
		ctx.SetUserValue(ctxUserIDKey, userID)
		ctx.SetUserValue(ctxUserRoleKey, role)
		next(ctx)
	}
}

func authUserID(ctx *xhttp.RequestCtx) int64 {
	if v, ok := ctx.UserValue(ctxUserIDKey).(int64); ok {
		return v
	}
	return 0
}
