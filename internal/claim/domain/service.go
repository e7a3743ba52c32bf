package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/attachment"
	benefitdomain "github.com/smallbiznis/shaadmin/internal/benefit/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type SubmitItemRequest struct {
	BenefitServiceID snowflake.ID `json:"benefit_service_id" binding:"required"`
	ServiceDate      civil.Date   `json:"service_date"`
	Quantity         int          `json:"quantity" binding:"required"`
	// UnitPrice defaults to the service's standard tariff.
	UnitPrice *int64 `json:"unit_price,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type SubmitRequest struct {
	ClaimNumber         string                `json:"claim_number,omitempty" binding:"omitempty,refcode=CLAIM"`
	MemberID            snowflake.ID          `json:"member_id" binding:"required"`
	ProviderID          snowflake.ID          `json:"provider_id" binding:"required"`
	BenefitPackageID    snowflake.ID          `json:"benefit_package_id" binding:"required"`
	PreAuthorizationID  *snowflake.ID         `json:"preauthorization_id,omitempty"`
	ClaimType           string                `json:"claim_type" binding:"required"`
	VisitDate           civil.Date            `json:"visit_date" binding:"required"`
	AdmissionDate       *civil.Date           `json:"admission_date,omitempty"`
	DischargeDate       *civil.Date           `json:"discharge_date,omitempty"`
	Diagnosis           string                `json:"diagnosis" binding:"required"`
	ICDCode             string                `json:"icd_code,omitempty"`
	SupportingDocuments []attachment.Document `json:"supporting_documents,omitempty"`
	Items               []SubmitItemRequest   `json:"items" binding:"required,dive"`
}

type AdjustItemRequest struct {
	ApprovedQuantity *int    `json:"approved_quantity,omitempty"`
	ApprovedAmount   *int64  `json:"approved_amount,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	MemberID   string `form:"member_id"`
	ProviderID string `form:"provider_id"`
	ClaimType  string `form:"claim_type"`
	VisitFrom  string `form:"visit_from"`
	VisitTo    string `form:"visit_to"`
}

type ListFilter struct {
	Status     Status
	MemberID   snowflake.ID
	ProviderID snowflake.ID
	ClaimType  Type
	VisitFrom  *time.Time
	VisitTo    *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Claims []Claim `json:"claims"`
}

type BulkResult struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Claim, error)
	// Get returns the claim with its items.
	Get(ctx context.Context, id snowflake.ID) (*Claim, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkUnderReview(ctx context.Context, id snowflake.ID) (*Claim, error)
	Approve(ctx context.Context, id snowflake.ID, amount *int64) (*Claim, error)
	Reject(ctx context.Context, id snowflake.ID, reason string) (*Claim, error)
	AdjustItem(ctx context.Context, claimID, itemID snowflake.ID, req AdjustItemRequest) (*Item, error)
	BulkMarkUnderReview(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
	BulkApprove(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
	BulkReject(ctx context.Context, ids []snowflake.ID, reason string) (BulkResult, error)
	// MarkPaid moves an APPROVED claim to PAID inside tx and returns the
	// updated claim, or nil when it was not APPROVED. The payment ledger
	// calls it while settling and publishes the event after commit.
	MarkPaid(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Claim, error)
}

// Party reports whether a referenced row exists and is active.
type Party struct {
	Found  bool
	Active bool
}

// Recipient is the member account to notify about a claim.
type Recipient struct {
	ID          snowflake.ID
	ClaimNumber string
	UserID      *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Claim) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Claim, error)
	FindItems(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]Item, error)
	FindItem(ctx context.Context, db *gorm.DB, claimID, itemID snowflake.ID) (*Item, error)
	UpdateItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID, fields map[string]any) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Claim, error)
	IDsInStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, statuses []Status) ([]snowflake.ID, error)
	Transition(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []Status, fields map[string]any) (int64, error)
	Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Recipient, error)

	Member(ctx context.Context, db *gorm.DB, id snowflake.ID) (Party, error)
	Provider(ctx context.Context, db *gorm.DB, id snowflake.ID) (Party, error)
	PackageExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	PackageServices(ctx context.Context, db *gorm.DB, packageID snowflake.ID, ids []snowflake.ID) ([]benefitdomain.BenefitService, error)
	// PreAuthMember returns the member a pre-authorization belongs to, or
	// zero when it does not exist.
	PreAuthMember(ctx context.Context, db *gorm.DB, id snowflake.ID) (snowflake.ID, error)
}

var (
	ErrNotFound                = errors.New("not_found")
	ErrItemNotFound            = errors.New("claim_item_not_found")
	ErrInvalidMember           = errors.New("invalid_member")
	ErrInvalidProvider         = errors.New("invalid_provider")
	ErrInvalidBenefitPackage   = errors.New("invalid_benefit_package")
	ErrInvalidPreAuthorization = errors.New("invalid_preauthorization")
	ErrInvalidClaimType        = errors.New("invalid_claim_type")
	ErrInvalidVisitDate        = errors.New("invalid_visit_date")
	ErrInvalidDischargeDate    = errors.New("invalid_discharge_date")
	ErrInvalidDiagnosis        = errors.New("invalid_diagnosis")
	ErrInvalidItems            = errors.New("invalid_items")
	ErrInvalidBenefitService   = errors.New("invalid_benefit_service")
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrInvalidUnitPrice        = errors.New("invalid_unit_price")
	ErrInvalidApprovedAmount   = errors.New("invalid_approved_amount")
	ErrInvalidApprovedQuantity = errors.New("invalid_approved_quantity")
	ErrInvalidRejectionReason  = errors.New("invalid_rejection_reason")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidIDs              = errors.New("invalid_ids")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrDuplicateClaimNumber    = errors.New("duplicate_claim_number")
)
