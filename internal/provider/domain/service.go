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
	FacilityCode      string        `json:"facility_code,omitempty" binding:"omitempty,refcode=PROVIDER"`
	FacilityName      string        `json:"facility_name" binding:"required"`
	FacilityLevel     string        `json:"facility_level" binding:"required"`
	FacilityType      string        `json:"facility_type" binding:"required"`
	LicenseNumber     string        `json:"license_number" binding:"required"`
	KMPDBNumber       string        `json:"kmpdb_number"`
	Email             string        `json:"email" binding:"required,email"`
	PhoneNumber       string        `json:"phone_number" binding:"required"`
	County            string        `json:"county"`
	SubCounty         string        `json:"sub_county"`
	PhysicalAddress   string        `json:"physical_address"`
	BankName          string        `json:"bank_name"`
	BankAccountNumber string        `json:"bank_account_number"`
	BankBranch        string        `json:"bank_branch"`
	IsContracted      bool          `json:"is_contracted"`
	ContractStartDate *civil.Date   `json:"contract_start_date"`
	ContractEndDate   *civil.Date   `json:"contract_end_date"`
	UserID            *snowflake.ID `json:"user_id,omitempty"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	FacilityName      *string `json:"facility_name"`
	FacilityLevel     *string `json:"facility_level"`
	KMPDBNumber       *string `json:"kmpdb_number"`
	Email             *string `json:"email"`
	PhoneNumber       *string `json:"phone_number"`
	County            *string `json:"county"`
	SubCounty         *string `json:"sub_county"`
	PhysicalAddress   *string `json:"physical_address"`
	BankName          *string `json:"bank_name"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankBranch        *string `json:"bank_branch"`
}

type ContractRequest struct {
	IsContracted bool        `json:"is_contracted"`
	StartDate    *civil.Date `json:"contract_start_date"`
	EndDate      *civil.Date `json:"contract_end_date"`
}

type ListRequest struct {
	pagination.Pagination
	FacilityLevel string `form:"facility_level"`
	FacilityType  string `form:"facility_type"`
	County        string `form:"county"`
	IsContracted  *bool  `form:"is_contracted"`
	IsActive      *bool  `form:"is_active"`
	Search        string `form:"search"`
}

type ListFilter struct {
	FacilityLevel FacilityLevel
	FacilityType  FacilityType
	County        string
	IsContracted  *bool
	IsActive      *bool
	Search        string
}

type ListResponse struct {
	pagination.PageInfo
	Providers []Provider `json:"providers"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Provider, error)
	Get(ctx context.Context, id snowflake.ID) (*Provider, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Provider, error)
	SetContract(ctx context.Context, id snowflake.ID, req ContractRequest) (*Provider, error)
	Deactivate(ctx context.Context, id snowflake.ID) (*Provider, error)
	Activate(ctx context.Context, id snowflake.ID) (*Provider, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Provider) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Provider, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Provider, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}

var (
	ErrNotFound              = errors.New("not_found")
	ErrInvalidFacilityName   = errors.New("invalid_facility_name")
	ErrInvalidFacilityLevel  = errors.New("invalid_facility_level")
	ErrInvalidFacilityType   = errors.New("invalid_facility_type")
	ErrInvalidLicenseNumber  = errors.New("invalid_license_number")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrInvalidPhoneNumber    = errors.New("invalid_phone_number")
	ErrInvalidContractPeriod = errors.New("invalid_contract_period")
	ErrInvalidUser           = errors.New("invalid_user")
	ErrDuplicateLicense      = errors.New("duplicate_license_number")
	ErrDuplicateFacilityCode = errors.New("duplicate_facility_code")
	ErrDuplicateUser         = errors.New("duplicate_user")
)
