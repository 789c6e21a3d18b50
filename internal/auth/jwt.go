package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nimasrn/bank-ledger/internal/model"
)

const (
	// TokenPrefix is expected on the Authorization header. Issued tokens
	// themselves are bare; the prefix is applied at the header site.
	TokenPrefix = "Bearer "
	HeaderKey   = "Authorization"

	tokenSubject = "bank-ledger-jwt"
)

var ErrInvalidToken = errors.New("invalid token")

// Config is built once at startup from the environment and passed by
// reference; nothing mutates it afterwards.
type Config struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies symmetric HMAC-SHA512 tokens. Issue
// and verify live in one process, so a shared secret is enough.
type TokenService struct {
	cfg Config
}

func NewTokenService(cfg Config) *TokenService {
	return &TokenService{cfg: cfg}
}

func (s *TokenService) Create(userID int64, role model.UserRole) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenSubject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiry)),
		},
	})

	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the signature, issuer, and expiry, and returns the
// authenticated user id and role.
func (s *TokenService) Verify(token string) (int64, model.UserRole, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return 0, "", ErrInvalidToken
	}
	if c.UserID == 0 {
		return 0, "", ErrInvalidToken
	}

	return c.UserID, model.UserRole(c.Role), nil
}
