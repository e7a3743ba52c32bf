package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

// RecordRequest carries either an explicit amount or a gross salary to
// derive it from. Rate is in basis points and defaults to the scheme rate.
type RecordRequest struct {
	MemberID             snowflake.ID  `json:"member_id" binding:"required"`
	EmployerID           *snowflake.ID `json:"employer_id,omitempty"`
	ContributionMonth    civil.Date    `json:"contribution_month" binding:"required"`
	GrossSalary          *int64        `json:"gross_salary,omitempty"`
	ContributionAmount   *int64        `json:"contribution_amount,omitempty"`
	ContributionRate     *int64        `json:"contribution_rate,omitempty"`
	PaymentMethod        string        `json:"payment_method" binding:"required"`
	TransactionReference string        `json:"transaction_reference" binding:"required"`
	PaymentDate          *time.Time    `json:"payment_date,omitempty"`
	Status               string        `json:"status,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	MemberID   string `form:"member_id"`
	EmployerID string `form:"employer_id"`
	Status     string `form:"status"`
	MonthFrom  string `form:"month_from"`
	MonthTo    string `form:"month_to"`
}

type ListFilter struct {
	MemberID   snowflake.ID
	EmployerID snowflake.ID
	Status     Status
	MonthFrom  *time.Time
	MonthTo    *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Contributions []Contribution `json:"contributions"`
}

// BulkResult reports how many of the requested rows changed.
type BulkResult struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Contribution, error)
	Get(ctx context.Context, id snowflake.ID) (*Contribution, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	BulkMarkCompleted(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
	BulkMarkFailed(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
	Reverse(ctx context.Context, id snowflake.ID) (*Contribution, error)
	MemberSummary(ctx context.Context, memberID snowflake.ID) (Summary, error)
}

// Recipient links a contribution to the member's user account, if any.
type Recipient struct {
	ContributionID snowflake.ID
	MemberID       snowflake.ID
	UserID         *snowflake.ID
	Amount         int64
	Month          time.Time
	Reference      string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Contribution) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contribution, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Contribution, error)
	// IDsNotIn returns the ids among ids whose status is not status.
	IDsNotIn(ctx context.Context, db *gorm.DB, ids []snowflake.ID, status Status) ([]snowflake.ID, error)
	SetStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []Status, to Status, at time.Time) (int64, error)
	Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Recipient, error)
	Summary(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (Summary, error)
	MemberEmployer(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (found bool, employerID *snowflake.ID, err error)
	EmployerExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}

var (
	ErrNotFound                      = errors.New("not_found")
	ErrInvalidMember                 = errors.New("invalid_member")
	ErrInvalidEmployer               = errors.New("invalid_employer")
	ErrInvalidContributionMonth      = errors.New("invalid_contribution_month")
	ErrInvalidContributionAmount     = errors.New("invalid_contribution_amount")
	ErrInvalidContributionRate       = errors.New("invalid_contribution_rate")
	ErrInvalidGrossSalary            = errors.New("invalid_gross_salary")
	ErrInvalidPaymentMethod          = errors.New("invalid_payment_method")
	ErrInvalidTransactionReference   = errors.New("invalid_transaction_reference")
	ErrInvalidStatus                 = errors.New("invalid_status")
	ErrInvalidIDs                    = errors.New("invalid_ids")
	ErrInvalidTransition             = errors.New("invalid_transition")
	ErrDuplicateContribution         = errors.New("duplicate_contribution")
	ErrDuplicateTransactionReference = errors.New("duplicate_transaction_reference")
	ErrMemberNotFound                = errors.New("member_not_found")
)
