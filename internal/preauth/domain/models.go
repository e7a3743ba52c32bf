package domain

import (
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/attachment"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusExpired},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Sources lists the statuses that may move to to.
func Sources(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusApproved, StatusRejected, StatusExpired} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

type PreAuthorization struct {
	ID                   snowflake.ID         `json:"id" gorm:"primaryKey"`
	AuthorizationNumber  string               `json:"authorization_number"`
	MemberID             snowflake.ID         `json:"member_id"`
	ProviderID           *snowflake.ID        `json:"provider_id,omitempty"`
	BenefitServiceID     snowflake.ID         `json:"benefit_service_id"`
	Diagnosis            string               `json:"diagnosis"`
	ProcedureDescription string               `json:"procedure_description"`
	EstimatedCost        int64                `json:"estimated_cost"`
	RequestedDate        time.Time            `json:"requested_date"`
	PlannedProcedureDate *time.Time           `json:"planned_procedure_date,omitempty"`
	SupportingDocuments  attachment.Documents `json:"supporting_documents"`
	Status               Status               `json:"status"`
	ApprovedAmount       *int64               `json:"approved_amount,omitempty"`
	ApprovalDate         *time.Time           `json:"approval_date,omitempty"`
	ApprovedBy           *snowflake.ID        `json:"approved_by,omitempty"`
	RejectionReason      string               `json:"rejection_reason,omitempty"`
	ValidUntil           *time.Time           `json:"valid_until,omitempty"`
	SubmittedBy          *snowflake.ID        `json:"submitted_by,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func (PreAuthorization) TableName() string { return "preauthorizations" }

// UsableOn reports whether an approval still covers at.
func (p PreAuthorization) UsableOn(at time.Time) bool {
	return p.Status == StatusApproved && p.ValidUntil != nil && !at.After(*p.ValidUntil)
}
