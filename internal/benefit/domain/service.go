package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreatePackageRequest struct {
	PackageCode              string      `json:"package_code" binding:"required"`
	PackageName              string      `json:"package_name" binding:"required"`
	PackageType              string      `json:"package_type" binding:"required"`
	Description              string      `json:"description"`
	AnnualLimit              int64       `json:"annual_limit"`
	PerIllnessLimit          *int64      `json:"per_illness_limit"`
	ApplicableFacilityLevels []string    `json:"applicable_facility_levels"`
	EffectiveDate            civil.Date  `json:"effective_date" binding:"required"`
	EndDate                  *civil.Date `json:"end_date"`
}

type UpdatePackageRequest struct {
	PackageName              *string     `json:"package_name"`
	Description              *string     `json:"description"`
	AnnualLimit              *int64      `json:"annual_limit"`
	PerIllnessLimit          *int64      `json:"per_illness_limit"`
	ApplicableFacilityLevels []string    `json:"applicable_facility_levels"`
	EffectiveDate            *civil.Date `json:"effective_date"`
	EndDate                  *civil.Date `json:"end_date"`
	IsActive                 *bool       `json:"is_active"`
}

type ListPackagesRequest struct {
	pagination.Pagination
	PackageType string `form:"package_type"`
	IsActive    *bool  `form:"is_active"`
}

type ListPackagesResponse struct {
	pagination.PageInfo
	Packages []Package `json:"packages"`
}

type CreateServiceRequest struct {
	BenefitPackageID         snowflake.ID `json:"benefit_package_id" binding:"required"`
	ServiceCode              string       `json:"service_code" binding:"required"`
	ServiceName              string       `json:"service_name" binding:"required"`
	ServiceCategory          string       `json:"service_category" binding:"required"`
	StandardTariff           int64        `json:"standard_tariff"`
	CopaymentAmount          int64        `json:"copayment_amount"`
	CopaymentPercentage      int          `json:"copayment_percentage"`
	AnnualFrequencyLimit     *int         `json:"annual_frequency_limit"`
	PerVisitLimit            *int64       `json:"per_visit_limit"`
	RequiresPreauthorization bool         `json:"requires_preauthorization"`
}

type UpdateServiceRequest struct {
	ServiceName              *string `json:"service_name"`
	ServiceCategory          *string `json:"service_category"`
	StandardTariff           *int64  `json:"standard_tariff"`
	CopaymentAmount          *int64  `json:"copayment_amount"`
	CopaymentPercentage      *int    `json:"copayment_percentage"`
	AnnualFrequencyLimit     *int    `json:"annual_frequency_limit"`
	PerVisitLimit            *int64  `json:"per_visit_limit"`
	RequiresPreauthorization *bool   `json:"requires_preauthorization"`
	IsActive                 *bool   `json:"is_active"`
}

type ListServicesRequest struct {
	pagination.Pagination
	BenefitPackageID         string `form:"benefit_package_id"`
	ServiceCategory          string `form:"service_category"`
	RequiresPreauthorization *bool  `form:"requires_preauthorization"`
	IsActive                 *bool  `form:"is_active"`
}

type ServiceFilter struct {
	PackageID                snowflake.ID
	Category                 ServiceCategory
	RequiresPreauthorization *bool
	IsActive                 *bool
}

type ListServicesResponse struct {
	pagination.PageInfo
	Services []BenefitService `json:"services"`
}

type Service interface {
	CreatePackage(ctx context.Context, req CreatePackageRequest) (*Package, error)
	GetPackage(ctx context.Context, id snowflake.ID) (*Package, error)
	ListPackages(ctx context.Context, req ListPackagesRequest) (ListPackagesResponse, error)
	UpdatePackage(ctx context.Context, id snowflake.ID, req UpdatePackageRequest) (*Package, error)

	CreateService(ctx context.Context, req CreateServiceRequest) (*BenefitService, error)
	GetService(ctx context.Context, id snowflake.ID) (*BenefitService, error)
	ListServices(ctx context.Context, req ListServicesRequest) (ListServicesResponse, error)
	UpdateService(ctx context.Context, id snowflake.ID, req UpdateServiceRequest) (*BenefitService, error)
}

type Repository interface {
	InsertPackage(ctx context.Context, db *gorm.DB, p *Package) error
	FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Package, error)
	ListPackages(ctx context.Context, db *gorm.DB, packageType PackageType, active *bool, page pagination.Pagination) ([]*Package, error)
	UpdatePackage(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error

	InsertService(ctx context.Context, db *gorm.DB, s *BenefitService) error
	FindServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BenefitService, error)
	FindServicesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]BenefitService, error)
	ListServices(ctx context.Context, db *gorm.DB, filter ServiceFilter, page pagination.Pagination) ([]*BenefitService, error)
	UpdateService(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}

var (
	ErrPackageNotFound        = errors.New("benefit_package_not_found")
	ErrServiceNotFound        = errors.New("benefit_service_not_found")
	ErrInvalidPackageCode     = errors.New("invalid_package_code")
	ErrInvalidPackageName     = errors.New("invalid_package_name")
	ErrInvalidPackageType     = errors.New("invalid_package_type")
	ErrInvalidLimit           = errors.New("invalid_limit")
	ErrInvalidFacilityLevel   = errors.New("invalid_facility_level")
	ErrInvalidEffectivePeriod = errors.New("invalid_effective_period")
	ErrInvalidPackage         = errors.New("invalid_benefit_package")
	ErrInvalidServiceCode     = errors.New("invalid_service_code")
	ErrInvalidServiceName     = errors.New("invalid_service_name")
	ErrInvalidServiceCategory = errors.New("invalid_service_category")
	ErrInvalidTariff          = errors.New("invalid_tariff")
	ErrInvalidCopayment       = errors.New("invalid_copayment")
	ErrDuplicatePackageCode   = errors.New("duplicate_package_code")
	ErrDuplicateServiceCode   = errors.New("duplicate_service_code")
)
