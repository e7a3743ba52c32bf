package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	EmployerCode               string        `json:"employer_code,omitempty" binding:"omitempty,refcode=EMPLOYER"`
	CompanyName                string        `json:"company_name" binding:"required"`
	KRAPin                     string        `json:"kra_pin" binding:"required"`
	BusinessRegistrationNumber string        `json:"business_registration_number" binding:"required"`
	Email                      string        `json:"email" binding:"required,email"`
	PhoneNumber                string        `json:"phone_number" binding:"required"`
	PhysicalAddress            string        `json:"physical_address"`
	County                     string        `json:"county"`
	ContactPersonName          string        `json:"contact_person_name"`
	ContactPersonPhone         string        `json:"contact_person_phone"`
	ContactPersonEmail         string        `json:"contact_person_email"`
	BankName                   string        `json:"bank_name"`
	BankAccountNumber          string        `json:"bank_account_number"`
	BankBranch                 string        `json:"bank_branch"`
	UserID                     *snowflake.ID `json:"user_id,omitempty"`
}

type UpdateRequest struct {
	CompanyName        *string `json:"company_name"`
	Email              *string `json:"email"`
	PhoneNumber        *string `json:"phone_number"`
	PhysicalAddress    *string `json:"physical_address"`
	County             *string `json:"county"`
	ContactPersonName  *string `json:"contact_person_name"`
	ContactPersonPhone *string `json:"contact_person_phone"`
	ContactPersonEmail *string `json:"contact_person_email"`
	BankName           *string `json:"bank_name"`
	BankAccountNumber  *string `json:"bank_account_number"`
	BankBranch         *string `json:"bank_branch"`
}

type ListRequest struct {
	pagination.Pagination
	Search   string `form:"search"`
	County   string `form:"county"`
	IsActive *bool  `form:"is_active"`
}

type ListResponse struct {
	pagination.PageInfo
	Employers []Employer `json:"employers"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Employer, error)
	Get(ctx context.Context, id snowflake.ID) (*Employer, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Employer, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*Employer, error)
	Activate(ctx context.Context, id snowflake.ID) (*Employer, error)
	// Delete removes the employer; members and contributions keep their
	// rows with the employer reference cleared.
	Delete(ctx context.Context, id snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Employer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Employer, error)
	List(ctx context.Context, db *gorm.DB, req ListRequest, page pagination.Pagination) ([]*Employer, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

var (
	ErrNotFound                    = errors.New("not_found")
	ErrInvalidCompanyName          = errors.New("invalid_company_name")
	ErrInvalidKRAPin               = errors.New("invalid_kra_pin")
	ErrInvalidRegistrationNumber   = errors.New("invalid_business_registration_number")
	ErrInvalidEmail                = errors.New("invalid_email")
	ErrInvalidPhoneNumber          = errors.New("invalid_phone_number")
	ErrInvalidUser                 = errors.New("invalid_user")
	ErrDuplicateKRAPin             = errors.New("duplicate_kra_pin")
	ErrDuplicateRegistrationNumber = errors.New("duplicate_business_registration_number")
	ErrDuplicateEmployerCode       = errors.New("duplicate_employer_code")
	ErrDuplicateUser               = errors.New("duplicate_user")
)
