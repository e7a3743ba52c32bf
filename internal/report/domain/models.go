package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeContributionSummary Type = "CONTRIBUTION_SUMMARY"
	TypeClaimsReport        Type = "CLAIMS_REPORT"
	TypePaymentReport       Type = "PAYMENT_REPORT"
	TypeUtilization         Type = "UTILIZATION_REPORT"
	TypeProviderPerformance Type = "PROVIDER_PERFORMANCE"
	TypeMemberEnrollment    Type = "MEMBER_ENROLLMENT"
)

func (t Type) Valid() bool {
	switch t {
	case TypeContributionSummary, TypeClaimsReport, TypePaymentReport,
		TypeUtilization, TypeProviderPerformance, TypeMemberEnrollment:
		return true
	}
	return false
}

type Format string

const (
	FormatPDF   Format = "PDF"
	FormatExcel Format = "EXCEL"
	FormatCSV   Format = "CSV"
)

func (f Format) Valid() bool {
	return f == FormatPDF || f == FormatExcel || f == FormatCSV
}

// Ext is the file extension without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatExcel:
		return "xlsx"
	default:
		return "csv"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Filters narrows a report dataset. Empty fields do not filter.
type Filters struct {
	County     string        `json:"county,omitempty"`
	ProviderID *snowflake.ID `json:"provider_id,omitempty"`
	Status     string        `json:"status,omitempty"`
}

func (f Filters) Normalize() Filters {
	f.County = strings.TrimSpace(f.County)
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	return f
}

type Report struct {
	ID          snowflake.ID                `json:"id" gorm:"primaryKey"`
	ReportName  string                      `json:"report_name"`
	ReportType  Type                        `json:"report_type"`
	StartDate   time.Time                   `json:"start_date"`
	EndDate     time.Time                   `json:"end_date"`
	Filters     datatypes.JSONType[Filters] `json:"filters"`
	FilePath    string                      `json:"-"`
	FileFormat  Format                      `json:"file_format"`
	GeneratedBy *snowflake.ID               `json:"generated_by,omitempty"`
	GeneratedAt time.Time                   `json:"generated_at"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func (Report) TableName() string { return "reports" }

// Dataset is the rendered table: a title, header row and body rows.
type Dataset struct {
	Title   string
	Period  string
	Columns []string
	Rows    [][]string
}

// Query bounds a dataset to [Start, End) plus filters.
type Query struct {
	Start   time.Time
	End     time.Time
	Filters Filters
}

type ContributionRow struct {
	Month  time.Time
	Status string
	Count  int64
	Amount int64
}

type ClaimRow struct {
	Status    string
	ClaimType string
	Count     int64
	Claimed   int64
	Approved  int64
}

type PaymentRow struct {
	Status string
	Count  int64
	Amount int64
}

type UtilizationRow struct {
	Category string
	Items    int64
	Quantity int64
	Amount   int64
}

type ProviderRow struct {
	FacilityCode   string
	FacilityName   string
	Claims         int64
	Approved       int64
	Paid           int64
	Claimed        int64
	ApprovedAmount int64
}

type EnrollmentRow struct {
	County     string
	MemberType string
	Count      int64
}
