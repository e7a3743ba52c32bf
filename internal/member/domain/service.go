package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	SHANumber         string        `json:"sha_number,omitempty" binding:"omitempty,refcode=MEMBER"`
	NationalID        string        `json:"national_id" binding:"required"`
	FirstName         string        `json:"first_name" binding:"required"`
	MiddleName        string        `json:"middle_name"`
	LastName          string        `json:"last_name" binding:"required"`
	DateOfBirth       civil.Date    `json:"date_of_birth" binding:"required"`
	Gender            string        `json:"gender" binding:"required"`
	Email             string        `json:"email" binding:"required,email"`
	PhoneNumber       string        `json:"phone_number" binding:"required"`
	MemberType        string        `json:"member_type"`
	PrincipalMemberID *snowflake.ID `json:"principal_member_id,omitempty"`
	EmploymentStatus  string        `json:"employment_status" binding:"required"`
	EmployerID        *snowflake.ID `json:"employer_id,omitempty"`
	IsSubsidized      bool          `json:"is_subsidized"`
	County            string        `json:"county"`
	SubCounty         string        `json:"sub_county"`
	Ward              string        `json:"ward"`
	PostalAddress     string        `json:"postal_address"`
	UserID            *snowflake.ID `json:"user_id,omitempty"`
}

// UpdateRequest covers contact, location and employment fields. A zero
// employer_id clears the employer.
type UpdateRequest struct {
	Email            *string       `json:"email"`
	PhoneNumber      *string       `json:"phone_number"`
	County           *string       `json:"county"`
	SubCounty        *string       `json:"sub_county"`
	Ward             *string       `json:"ward"`
	PostalAddress    *string       `json:"postal_address"`
	EmploymentStatus *string       `json:"employment_status"`
	EmployerID       *snowflake.ID `json:"employer_id"`
	IsSubsidized     *bool         `json:"is_subsidized"`
}

type ListRequest struct {
	pagination.Pagination
	MemberType string `form:"member_type"`
	County     string `form:"county"`
	EmployerID string `form:"employer_id"`
	IsActive   *bool  `form:"is_active"`
	Search     string `form:"search"`
}

type ListFilter struct {
	MemberType  MemberType
	County      string
	EmployerID  snowflake.ID
	IsActive    *bool
	Search      string
	PrincipalID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Members []Member `json:"members"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Member, error)
	Get(ctx context.Context, id snowflake.ID) (*Member, error)
	GetBySHANumber(ctx context.Context, shaNumber string) (*Member, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Member, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*Member, error)
	Activate(ctx context.Context, id snowflake.ID) (*Member, error)
	ListDependents(ctx context.Context, principalID snowflake.ID) ([]Member, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, m *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindBySHANumber(ctx context.Context, db *gorm.DB, shaNumber string) (*Member, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Member, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	EmployerExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	UserExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

var (
	ErrNotFound                = errors.New("not_found")
	ErrInvalidNationalID       = errors.New("invalid_national_id")
	ErrInvalidName             = errors.New("invalid_name")
	ErrInvalidDateOfBirth      = errors.New("invalid_date_of_birth")
	ErrInvalidGender           = errors.New("invalid_gender")
	ErrInvalidEmail            = errors.New("invalid_email")
	ErrInvalidPhoneNumber      = errors.New("invalid_phone_number")
	ErrInvalidMemberType       = errors.New("invalid_member_type")
	ErrInvalidPrincipalMember  = errors.New("invalid_principal_member")
	ErrInvalidEmploymentStatus = errors.New("invalid_employment_status")
	ErrInvalidEmployer         = errors.New("invalid_employer")
	ErrInvalidUser             = errors.New("invalid_user")
	ErrInvalidSHANumber        = errors.New("invalid_sha_number")
	ErrDuplicateNationalID     = errors.New("duplicate_national_id")
	ErrDuplicateEmail          = errors.New("duplicate_email")
	ErrDuplicateSHANumber      = errors.New("duplicate_sha_number")
	ErrDuplicateUser           = errors.New("duplicate_user")
)
