package services

import (
	"context"
	"errors"

	"github.com/nimasrn/bank-ledger/internal/model"
	"github.com/nimasrn/bank-ledger/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrLoginFailed deliberately covers both a missing user and a wrong
	// password so the response does not reveal which one it was.
	ErrLoginFailed = errors.New("authentication failed")
)

type TokenIssuer interface {
	Create(userID int64, role model.UserRole) (string, error)
}

type UserService struct {
	userRepo UserRepository
	tokens   TokenIssuer
}

func NewUserService(userRepo UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Join registers a new user with a bcrypt-hashed password.
func (s *UserService) Join(ctx context.Context, p model.JoinRequest) (*model.User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	_, err := s.userRepo.FindByUsername(ctx, p.Username)
	if err == nil {
		return nil, ErrDuplicateUsername
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.userRepo.Create(ctx, &model.User{
		Username: p.Username,
		Password: string(hash),
		Email:    p.Email,
		Fullname: p.Fullname,
		Role:     model.RoleCustomer,
	})
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login verifies the credentials and issues a signed token carrying the
// user id and role.
func (s *UserService) Login(ctx context.Context, p model.LoginRequest) (*model.User, string, error) {
	if err := p.Validate(); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.FindByUsername(ctx, p.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrLoginFailed
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(p.Password)) != nil {
		return nil, "", ErrLoginFailed
	}

	token, err := s.tokens.Create(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
