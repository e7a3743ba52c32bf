package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	ReasonInactive        = "Member is inactive"
	ReasonNoContributions = "No recent contributions found"
)

// Check is an immutable snapshot of one eligibility verification.
type Check struct {
	ID                    snowflake.ID  `json:"id" gorm:"primaryKey"`
	MemberID              snowflake.ID  `json:"member_id"`
	ProviderID            *snowflake.ID `json:"provider_id,omitempty"`
	CheckDate             time.Time     `json:"check_date"`
	IsEligible            bool          `json:"is_eligible"`
	ContributionsUpToDate bool          `json:"contributions_up_to_date"`
	LastContributionDate  *time.Time    `json:"last_contribution_date,omitempty"`
	IneligibilityReason   string        `json:"ineligibility_reason,omitempty"`
	CheckedBy             *snowflake.ID `json:"checked_by,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}

func (Check) TableName() string { return "eligibility_checks" }

// MemberStanding is what a check needs to know about a member.
type MemberStanding struct {
	Found           bool
	Active          bool
	Subsidized      bool
	HasRecentCredit bool
}

type Verdict struct {
	Eligible bool
	UpToDate bool
	Reason   string
}

// Evaluate derives eligibility from a member's standing. Subsidized members
// are always current.
func Evaluate(m MemberStanding) Verdict {
	v := Verdict{UpToDate: m.Subsidized || m.HasRecentCredit}
	v.Eligible = m.Active && v.UpToDate
	switch {
	case !m.Active:
		v.Reason = ReasonInactive
	case !v.UpToDate:
		v.Reason = ReasonNoContributions
	}
	return v
}

// WindowStart is the earliest contribution month that still counts as recent.
func WindowStart(now time.Time, graceMonths int) time.Time {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -graceMonths, 0)
}
