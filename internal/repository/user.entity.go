package repository

import (
	"time"

	"github.com/nimasrn/bank-ledger/internal/model"
)

type UserEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Username  string    `db:"username"   gorm:"column:username;not null;uniqueIndex"`
	Password  string    `db:"password"   gorm:"column:password;not null"`
	Email     string    `db:"email"      gorm:"column:email;not null"`
	Fullname  string    `db:"fullname"   gorm:"column:fullname;not null"`
	Role      string    `db:"role"       gorm:"column:role;not null"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	return &UserEntity{
		ID:        m.ID,
		Username:  m.Username,
		Password:  m.Password,
		Email:     m.Email,
		Fullname:  m.Fullname,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:        e.ID,
		Username:  e.Username,
		Password:  e.Password,
		Email:     e.Email,
		Fullname:  e.Fullname,
		Role:      model.UserRole(e.Role),
		CreatedAt: e.CreatedAt,
	}
}
