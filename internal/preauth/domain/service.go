package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/attachment"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type RequestRequest struct {
	AuthorizationNumber  string                `json:"authorization_number,omitempty" binding:"omitempty,refcode=PREAUTH"`
	MemberID             snowflake.ID          `json:"member_id" binding:"required"`
	ProviderID           snowflake.ID          `json:"provider_id" binding:"required"`
	BenefitServiceID     snowflake.ID          `json:"benefit_service_id" binding:"required"`
	Diagnosis            string                `json:"diagnosis" binding:"required"`
	ProcedureDescription string                `json:"procedure_description" binding:"required"`
	EstimatedCost        int64                 `json:"estimated_cost" binding:"required"`
	PlannedProcedureDate *civil.Date           `json:"planned_procedure_date,omitempty"`
	SupportingDocuments  []attachment.Document `json:"supporting_documents,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	MemberID   string `form:"member_id"`
	ProviderID string `form:"provider_id"`
}

type ListFilter struct {
	Status     Status
	MemberID   snowflake.ID
	ProviderID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	PreAuthorizations []PreAuthorization `json:"preauthorizations"`
}

type BulkResult struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

type Service interface {
	Request(ctx context.Context, req RequestRequest) (*PreAuthorization, error)
	Get(ctx context.Context, id snowflake.ID) (*PreAuthorization, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Approve and Reject act on a PENDING record only and return
	// ErrInvalidTransition otherwise.
	Approve(ctx context.Context, id snowflake.ID, amount *int64) (*PreAuthorization, error)
	Reject(ctx context.Context, id snowflake.ID, reason string) (*PreAuthorization, error)
	// The bulk forms skip records that are not PENDING and report how many
	// changed.
	BulkApprove(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
	BulkReject(ctx context.Context, ids []snowflake.ID, reason string) (BulkResult, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// Party reports whether a referenced row exists and is active.
type Party struct {
	Found  bool
	Active bool
}

// Recipient is the member account to notify about a pre-authorization.
type Recipient struct {
	ID                  snowflake.ID
	AuthorizationNumber string
	UserID              *snowflake.ID
	ApprovedAmount      *int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *PreAuthorization) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PreAuthorization, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*PreAuthorization, error)
	// IDsInStatus narrows ids to the rows currently in one of statuses.
	IDsInStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, statuses []Status) ([]snowflake.ID, error)
	ExpiredIDs(ctx context.Context, db *gorm.DB, now time.Time) ([]snowflake.ID, error)
	Transition(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []Status, fields map[string]any) (int64, error)
	Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Recipient, error)
	Member(ctx context.Context, db *gorm.DB, id snowflake.ID) (Party, error)
	Provider(ctx context.Context, db *gorm.DB, id snowflake.ID) (Party, error)
	BenefitService(ctx context.Context, db *gorm.DB, id snowflake.ID) (Party, error)
}

var (
	ErrNotFound                     = errors.New("not_found")
	ErrInvalidMember                = errors.New("invalid_member")
	ErrInvalidProvider              = errors.New("invalid_provider")
	ErrInvalidBenefitService        = errors.New("invalid_benefit_service")
	ErrInvalidDiagnosis             = errors.New("invalid_diagnosis")
	ErrInvalidProcedure             = errors.New("invalid_procedure_description")
	ErrInvalidEstimatedCost         = errors.New("invalid_estimated_cost")
	ErrInvalidPlannedDate           = errors.New("invalid_planned_procedure_date")
	ErrInvalidApprovedAmount        = errors.New("invalid_approved_amount")
	ErrInvalidRejectionReason       = errors.New("invalid_rejection_reason")
	ErrInvalidStatus                = errors.New("invalid_status")
	ErrInvalidIDs                   = errors.New("invalid_ids")
	ErrInvalidTransition            = errors.New("invalid_transition")
	ErrDuplicateAuthorizationNumber = errors.New("duplicate_authorization_number")
)
