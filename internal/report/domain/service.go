package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type GenerateRequest struct {
	ReportName string     `json:"report_name" binding:"required"`
	ReportType Type       `json:"report_type" binding:"required"`
	StartDate  civil.Date `json:"start_date"`
	EndDate    civil.Date `json:"end_date"`
	Filters    Filters    `json:"filters"`
	FileFormat Format     `json:"file_format"`
}

type ListRequest struct {
	pagination.Pagination
	ReportType string `form:"report_type"`
}

type ListResponse struct {
	pagination.PageInfo
	Reports []Report `json:"reports"`
}

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*Report, error)
	Get(ctx context.Context, id snowflake.ID) (*Report, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Open returns the rendered artifact. The caller closes it.
	Open(ctx context.Context, id snowflake.ID) (*Report, io.ReadCloser, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, r *Report) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Report, error)
	List(ctx context.Context, db *gorm.DB, reportType Type, page pagination.Pagination) ([]*Report, error)

	Contributions(ctx context.Context, db *gorm.DB, q Query) ([]ContributionRow, error)
	Claims(ctx context.Context, db *gorm.DB, q Query) ([]ClaimRow, error)
	Payments(ctx context.Context, db *gorm.DB, q Query) ([]PaymentRow, error)
	Utilization(ctx context.Context, db *gorm.DB, q Query) ([]UtilizationRow, error)
	Providers(ctx context.Context, db *gorm.DB, q Query) ([]ProviderRow, error)
	Enrollment(ctx context.Context, db *gorm.DB, q Query) ([]EnrollmentRow, error)
}

// Renderer writes a dataset in one file format.
type Renderer interface {
	Render(w io.Writer, format Format, ds Dataset) error
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidReportName = errors.New("invalid_report_name")
	ErrInvalidReportType = errors.New("invalid_report_type")
	ErrInvalidFileFormat = errors.New("invalid_file_format")
	ErrInvalidDateRange  = errors.New("invalid_date_range")
	ErrInvalidStartDate  = errors.New("invalid_start_date")
	ErrFileNotFound      = errors.New("report_file_not_found")
)
