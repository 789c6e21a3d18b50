package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/bank-ledger/internal/auth"
	"github.com/nimasrn/bank-ledger/internal/model"
	xhttp "github.com/nimasrn/bank-ledger/pkg/http"
)

type UserService interface {
	Join(ctx context.Context, p model.JoinRequest) (*model.User, error)
	Login(ctx context.Context, p model.LoginRequest) (*model.User, string, error)
}

type UserHandler struct {
	svc UserService
}

// RegisterUserRoutes wires the two unauthenticated routes. Everything
// else in the API requires a bearer token.
func RegisterUserRoutes(e *router.Group, h *UserHandler) {
	e.POST("/users", h.Join)
	e.POST("/users/login", h.Login)
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		svc: userService,
	}
}

type joinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func (h *UserHandler) Join(ctx *xhttp.RequestCtx) {
	var req joinRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.JoinRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Fullname: req.Fullname,
	}
	user, err := h.svc.Join(ctx, p)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, userResponse{ID: user.ID, Username: user.Username, Fullname: user.Fullname})
}

func (h *UserHandler) Login(ctx *xhttp.RequestCtx) {
	var req loginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	user, token, err := h.svc.Login(ctx, model.LoginRequest{Username: req.Username, Password: req.Password})
	if err != nil {
		serviceError(ctx, err)
		return
	}
	ctx.Response.Header.Set(auth.HeaderKey, auth.TokenPrefix+token)
	writeJSON(ctx, 200, loginResponse{
		User:  userResponse{ID: user.ID, Username: user.Username, Fullname: user.Fullname},
		Token: token,
	})
}
