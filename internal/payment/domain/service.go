package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	PaymentReference     string       `json:"payment_reference,omitempty" binding:"omitempty,refcode=PAYMENT"`
	ClaimID              snowflake.ID `json:"claim_id" binding:"required"`
	ProviderID           snowflake.ID `json:"provider_id" binding:"required"`
	PaymentAmount        *int64       `json:"payment_amount,omitempty"`
	PaymentDate          *time.Time   `json:"payment_date,omitempty"`
	PaymentMethod        string       `json:"payment_method,omitempty"`
	BankName             string       `json:"bank_name,omitempty"`
	AccountNumber        string       `json:"account_number,omitempty"`
	TransactionReference string       `json:"transaction_reference,omitempty"`
	Notes                string       `json:"notes,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	ProviderID string `form:"provider_id"`
	ClaimID    string `form:"claim_id"`
}

type ListFilter struct {
	Status     Status
	ProviderID snowflake.ID
	ClaimID    snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type BulkResult struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Payment, error)
	Get(ctx context.Context, id snowflake.ID) (*Payment, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkProcessing(ctx context.Context, id snowflake.ID) (*Payment, error)
	// BulkMarkCompleted settles the selected payments and moves their
	// APPROVED claims to PAID in the same transaction.
	BulkMarkCompleted(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
	BulkMarkFailed(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
}

// ClaimTerms are the claim columns a payment is checked against.
type ClaimTerms struct {
	ID             snowflake.ID
	ClaimNumber    string
	Status         string
	ProviderID     *snowflake.ID
	ClaimedAmount  int64
	ApprovedAmount *int64
}

// Recipient is the provider account to notify about a payment.
type Recipient struct {
	ID               snowflake.ID
	PaymentReference string
	PaymentAmount    int64
	ClaimID          snowflake.ID
	UserID           *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Payment, error)
	IDsNotIn(ctx context.Context, db *gorm.DB, ids []snowflake.ID, status Status) ([]snowflake.ID, error)
	// WithClaimIn keeps the ids whose claim is in one of claimStatuses.
	WithClaimIn(ctx context.Context, db *gorm.DB, ids []snowflake.ID, claimStatuses []string) ([]snowflake.ID, error)
	SetStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []Status, fields map[string]any) (int64, error)
	Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Recipient, error)
	ClaimTerms(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*ClaimTerms, error)
	HasActivePayment(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (bool, error)
}

var (
	ErrNotFound             = errors.New("not_found")
	ErrInvalidClaim         = errors.New("invalid_claim")
	ErrInvalidProvider      = errors.New("invalid_provider")
	ErrInvalidPaymentAmount = errors.New("invalid_payment_amount")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidIDs           = errors.New("invalid_ids")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrClaimNotApproved     = errors.New("claim_not_approved")
	ErrDuplicatePayment     = errors.New("duplicate_payment")
	ErrDuplicatePaymentRef  = errors.New("duplicate_payment_reference")
)
