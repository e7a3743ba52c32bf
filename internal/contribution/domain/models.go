package domain

import (
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusReversed  Status = "REVERSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusReversed:
		return true
	}
	return false
}

// reversible lists the guarded transitions. Completion and failure are set
// by bulk actions regardless of the current status.
var reversible = map[Status][]Status{
	StatusReversed: {StatusCompleted},
}

// ReverseSources returns the statuses a contribution may be reversed from.
func ReverseSources() []Status {
	return slices.Clone(reversible[StatusReversed])
}

type PaymentMethod string

const (
	MethodSalaryDeduction PaymentMethod = "SALARY_DEDUCTION"
	MethodMpesa           PaymentMethod = "MPESA"
	MethodBankTransfer    PaymentMethod = "BANK_TRANSFER"
	MethodUSSD            PaymentMethod = "USSD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodSalaryDeduction, MethodMpesa, MethodBankTransfer, MethodUSSD:
		return true
	}
	return false
}

type Contribution struct {
	ID                   snowflake.ID  `json:"id" gorm:"primaryKey"`
	MemberID             snowflake.ID  `json:"member_id"`
	EmployerID           *snowflake.ID `json:"employer_id,omitempty"`
	ContributionMonth    time.Time     `json:"contribution_month"`
	GrossSalary          *int64        `json:"gross_salary,omitempty"`
	ContributionAmount   int64         `json:"contribution_amount"`
	ContributionRate     int64         `json:"contribution_rate"`
	PaymentMethod        PaymentMethod `json:"payment_method"`
	TransactionReference string        `json:"transaction_reference"`
	PaymentDate          time.Time     `json:"payment_date"`
	Status               Status        `json:"status"`
	SubmittedBy          *snowflake.ID `json:"submitted_by,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func (Contribution) TableName() string { return "contributions" }

// ComputeAmount derives a contribution from gross salary at rateBps,
// rounding half up to the cent and never going below minimum.
func ComputeAmount(gross, rateBps, minimum int64) int64 {
	amount := (gross*rateBps + 5000) / 10000
	return max(amount, minimum)
}

// Summary aggregates a member's completed contributions.
type Summary struct {
	MemberID             snowflake.ID `json:"member_id"`
	TotalCompleted       int64        `json:"total_completed"`
	MonthsCovered        int64        `json:"months_covered"`
	LastContributionDate *time.Time   `json:"last_contribution_date,omitempty"`
	PendingCount         int64        `json:"pending_count"`
}
