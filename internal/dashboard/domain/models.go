package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Summary is the back-office landing view. Amounts are in cents.
type Summary struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	Members           MemberStats       `json:"members"`
	Employers         EmployerStats     `json:"employers"`
	Providers         ProviderStats     `json:"providers"`
	Contributions     ContributionStats `json:"contributions"`
	Claims            ClaimStats        `json:"claims"`
	PreAuthorizations PreAuthStats      `json:"preauthorizations"`
	Payments          PaymentStats      `json:"payments"`
	TopProviders      []ProviderClaims  `json:"top_providers"`
	TopCounties       []CountyMembers   `json:"top_counties"`
	RecentClaims      []RecentClaim     `json:"recent_claims"`
}

type MemberStats struct {
	Total        int64   `json:"total"`
	Active       int64   `json:"active"`
	Principals   int64   `json:"principals"`
	Dependents   int64   `json:"dependents"`
	NewThisMonth int64   `json:"new_this_month"`
	NewLastMonth int64   `json:"new_last_month"`
	GrowthPct    float64 `json:"growth_pct"`
}

type EmployerStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type ProviderStats struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	Contracted int64 `json:"contracted"`
}

type ContributionStats struct {
	CompletedTotal int64         `json:"completed_total"`
	CurrentMonth   int64         `json:"current_month"`
	LastMonth      int64         `json:"last_month"`
	GrowthPct      float64       `json:"growth_pct"`
	PendingCount   int64         `json:"pending_count"`
	Trend          []MonthAmount `json:"trend"`
}

type MonthAmount struct {
	Month  string `json:"month"`
	Amount int64  `json:"amount"`
}

type ClaimStats struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	Pending       int64            `json:"pending"`
	TotalClaimed  int64            `json:"total_claimed"`
	TotalApproved int64            `json:"total_approved"`
	ThisMonth     int64            `json:"this_month"`
	LastMonth     int64            `json:"last_month"`
	GrowthPct     float64          `json:"growth_pct"`
}

type PreAuthStats struct {
	Pending int64 `json:"pending"`
}

type PaymentStats struct {
	CompletedTotal     int64 `json:"completed_total"`
	CompletedThisMonth int64 `json:"completed_this_month"`
	PendingCount       int64 `json:"pending_count"`
	PendingAmount      int64 `json:"pending_amount"`
}

type ProviderClaims struct {
	ProviderID   snowflake.ID `json:"provider_id"`
	FacilityName string       `json:"facility_name"`
	Claims       int64        `json:"claims"`
}

type CountyMembers struct {
	County  string `json:"county"`
	Members int64  `json:"members"`
}

type RecentClaim struct {
	ID             snowflake.ID `json:"id"`
	ClaimNumber    string       `json:"claim_number"`
	MemberName     string       `json:"member_name"`
	FacilityName   string       `json:"facility_name"`
	Status         string       `json:"status"`
	ClaimedAmount  int64        `json:"claimed_amount"`
	SubmissionDate time.Time    `json:"submission_date"`
}

// Growth is the month-over-month change in percent, rounded to one
// decimal. With nothing last month it is 100 when anything happened this
// month and 0 otherwise.
func Growth(this, last int64) float64 {
	if last <= 0 {
		if this > 0 {
			return 100
		}
		return 0
	}
	pct := float64(this-last) / float64(last) * 100
	return math.Round(pct*10) / 10
}
