package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Active reports whether the payment still counts against its claim.
func (s Status) Active() bool {
	return s != StatusFailed
}

const DefaultMethod = "Bank Transfer"

type Payment struct {
	ID                   snowflake.ID  `json:"id" gorm:"primaryKey"`
	PaymentReference     string        `json:"payment_reference"`
	ProviderID           *snowflake.ID `json:"provider_id,omitempty"`
	ClaimID              snowflake.ID  `json:"claim_id"`
	PaymentAmount        int64         `json:"payment_amount"`
	PaymentDate          time.Time     `json:"payment_date"`
	PaymentMethod        string        `json:"payment_method"`
	BankName             string        `json:"bank_name,omitempty"`
	AccountNumber        string        `json:"account_number,omitempty"`
	TransactionReference string        `json:"transaction_reference,omitempty"`
	Status               Status        `json:"status"`
	ProcessedBy          *snowflake.ID `json:"processed_by,omitempty"`
	Notes                string        `json:"notes,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
