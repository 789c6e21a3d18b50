package model

import (
	"errors"
	"regexp"
	"time"
)

type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleAdmin    UserRole = "ADMIN"
)

type User struct {
	ID        int64     `json:"id"        db:"id"`
	Username  string    `json:"username"  db:"username"`
	Password  string    `json:"-"         db:"password"` // bcrypt hash
	Email     string    `json:"email"     db:"email"`
	Fullname  string    `json:"fullname"  db:"fullname"`
	Role      UserRole  `json:"role"      db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var (
	usernamePattern = regexp.MustCompile(`^\w{2,20}$`)
	emailPattern    = regexp.MustCompile(`^[\w.-]+@[\w-]+\.[\w.]{2,6}$`)
	telPattern      = regexp.MustCompile(`^\d{11}$`)
)

// JoinRequest is the input for user sign-up.
type JoinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

func (p JoinRequest) Validate() error {
	if !usernamePattern.MatchString(p.Username) {
		return errors.New("username must be 2 to 20 word characters")
	}
	if len(p.Password) < 4 || len(p.Password) > 20 {
		return errors.New("password must be 4 to 20 characters")
	}
	if !emailPattern.MatchString(p.Email) {
		return errors.New("invalid email format")
	}
	if p.Fullname == "" {
		return errors.New("fullname is required")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p LoginRequest) Validate() error {
	if p.Username == "" {
		return errors.New("username is required")
	}
	if p.Password == "" {
		return errors.New("password is required")
	}
	return nil
}
