package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Role        string `json:"role" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password,omitempty"`
}

type ListUserRequest struct {
	pagination.Pagination
	Role string `form:"role"`
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	// FindActive resolves an upstream identity; inactive users are not found.
	FindActive(ctx context.Context, id snowflake.ID) (*User, error)
	List(ctx context.Context, req ListUserRequest) (ListUserResponse, error)
	SetVerified(ctx context.Context, id snowflake.ID, verified bool) (*User, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*User, error)
	VerifyPassword(ctx context.Context, username, plain string) (*User, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	List(ctx context.Context, db *gorm.DB, role Role, page pagination.Pagination) ([]*User, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) (int64, error)
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidPhoneNumber = errors.New("invalid_phone_number")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrDuplicateUsername  = errors.New("duplicate_username")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrDuplicatePhone     = errors.New("duplicate_phone_number")
)
