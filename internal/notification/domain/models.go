package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeContributionDue      Type = "CONTRIBUTION_DUE"
	TypeContributionReceived Type = "CONTRIBUTION_RECEIVED"
	TypeClaimSubmitted       Type = "CLAIM_SUBMITTED"
	TypeClaimApproved        Type = "CLAIM_APPROVED"
	TypeClaimRejected        Type = "CLAIM_REJECTED"
	TypePaymentMade          Type = "PAYMENT_MADE"
	TypePreAuthApproved      Type = "PREAUTH_APPROVED"
	TypePreAuthRejected      Type = "PREAUTH_REJECTED"
	TypeSystemAlert          Type = "SYSTEM_ALERT"
)

// Kind names the entity a notification points at.
type Kind string

const (
	KindMember           Kind = "MEMBER"
	KindEmployer         Kind = "EMPLOYER"
	KindProvider         Kind = "PROVIDER"
	KindContribution     Kind = "CONTRIBUTION"
	KindPreAuthorization Kind = "PREAUTHORIZATION"
	KindClaim            Kind = "CLAIM"
	KindPayment          Kind = "PAYMENT"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMember, KindEmployer, KindProvider, KindContribution,
		KindPreAuthorization, KindClaim, KindPayment:
		return true
	}
	return false
}

// Related is a loose reference; there is no foreign key behind it.
type Related struct {
	Kind Kind          `json:"kind" gorm:"column:related_kind"`
	ID   *snowflake.ID `json:"id,omitempty" gorm:"column:related_id"`
}

func RelatedTo(kind Kind, id snowflake.ID) Related {
	return Related{Kind: kind, ID: &id}
}

type Notification struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID `json:"user_id"`
	NotificationType Type         `json:"notification_type"`
	Title            string       `json:"title"`
	Message          string       `json:"message"`
	Related          Related      `json:"related" gorm:"embedded"`
	IsRead           bool         `json:"is_read"`
	ReadAt           *time.Time   `json:"read_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// Message is the input to Notify. A nil or zero recipient is skipped.
type Message struct {
	UserID  *snowflake.ID
	Type    Type
	Title   string
	Body    string
	Related Related
}
