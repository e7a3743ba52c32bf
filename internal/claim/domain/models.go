package domain

import (
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/attachment"
)

type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusPaid        Status = "PAID"
	StatusQueried     Status = "QUERIED"
)

var statuses = []Status{StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusPaid, StatusQueried}

func (s Status) Valid() bool {
	return slices.Contains(statuses, s)
}

// QUERIED has no way in. PAID and REJECTED have no way out.
var transitions = map[Status][]Status{
	StatusSubmitted:   {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusPaid, StatusRejected},
	StatusQueried:     {StatusRejected},
}

func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Sources lists the statuses that may move to to.
func Sources(to Status) []Status {
	var out []Status
	for _, from := range statuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Adjustable reports whether line items may still be adjusted.
func (s Status) Adjustable() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

type Type string

const (
	TypeOutpatient Type = "OUTPATIENT"
	TypeInpatient  Type = "INPATIENT"
	TypeEmergency  Type = "EMERGENCY"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOutpatient, TypeInpatient, TypeEmergency:
		return true
	}
	return false
}

type Claim struct {
	ID                  snowflake.ID         `json:"id" gorm:"primaryKey"`
	ClaimNumber         string               `json:"claim_number"`
	MemberID            snowflake.ID         `json:"member_id"`
	ProviderID          *snowflake.ID        `json:"provider_id,omitempty"`
	BenefitPackageID    snowflake.ID         `json:"benefit_package_id"`
	PreAuthorizationID  *snowflake.ID        `json:"preauthorization_id,omitempty" gorm:"column:preauthorization_id"`
	ClaimType           Type                 `json:"claim_type"`
	VisitDate           time.Time            `json:"visit_date"`
	AdmissionDate       *time.Time           `json:"admission_date,omitempty"`
	DischargeDate       *time.Time           `json:"discharge_date,omitempty"`
	Diagnosis           string               `json:"diagnosis"`
	ICDCode             string               `json:"icd_code" gorm:"column:icd_code"`
	ClaimedAmount       int64                `json:"claimed_amount"`
	ApprovedAmount      *int64               `json:"approved_amount,omitempty"`
	RejectedAmount      *int64               `json:"rejected_amount,omitempty"`
	CopaymentAmount     int64                `json:"copayment_amount"`
	Status              Status               `json:"status"`
	SubmissionDate      time.Time            `json:"submission_date"`
	ReviewDate          *time.Time           `json:"review_date,omitempty"`
	ApprovalDate        *time.Time           `json:"approval_date,omitempty"`
	PaymentDate         *time.Time           `json:"payment_date,omitempty"`
	RejectionReason     string               `json:"rejection_reason,omitempty"`
	QueryComments       string               `json:"query_comments,omitempty"`
	SupportingDocuments attachment.Documents `json:"supporting_documents"`
	SubmittedBy         *snowflake.ID        `json:"submitted_by,omitempty"`
	ReviewedBy          *snowflake.ID        `json:"reviewed_by,omitempty"`
	ApprovedBy          *snowflake.ID        `json:"approved_by,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`

	Items []Item `json:"items,omitempty" gorm:"-"`
}

func (Claim) TableName() string { return "claims" }

// Item is one billed service line. Approved fields are set during review
// and never touch the requested quantity or total.
type Item struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	ClaimID          snowflake.ID `json:"claim_id"`
	BenefitServiceID snowflake.ID `json:"benefit_service_id"`
	ServiceDate      time.Time    `json:"service_date"`
	Quantity         int          `json:"quantity"`
	UnitPrice        int64        `json:"unit_price"`
	TotalAmount      int64        `json:"total_amount"`
	ApprovedQuantity *int         `json:"approved_quantity,omitempty"`
	ApprovedAmount   *int64       `json:"approved_amount,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (Item) TableName() string { return "claim_items" }
