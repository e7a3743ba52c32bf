package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type FacilityLevel string

const (
	Level1 FacilityLevel = "LEVEL_1"
	Level2 FacilityLevel = "LEVEL_2"
	Level3 FacilityLevel = "LEVEL_3"
	Level4 FacilityLevel = "LEVEL_4"
	Level5 FacilityLevel = "LEVEL_5"
	Level6 FacilityLevel = "LEVEL_6"
)

var levelNames = map[FacilityLevel]string{
	Level1: "Level 1 - Community",
	Level2: "Level 2 - Dispensary",
	Level3: "Level 3 - Health Centre",
	Level4: "Level 4 - Sub-County Hospital",
	Level5: "Level 5 - County Referral",
	Level6: "Level 6 - National Referral",
}

func (l FacilityLevel) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

func (l FacilityLevel) Label() string {
	return levelNames[l]
}

// Tier returns 1..6, or 0 for an unknown level.
func (l FacilityLevel) Tier() int {
	if !l.Valid() {
		return 0
	}
	return int(l[len(l)-1] - '0')
}

type FacilityType string

const (
	FacilityPublic     FacilityType = "PUBLIC"
	FacilityPrivate    FacilityType = "PRIVATE"
	FacilityFaithBased FacilityType = "FAITH_BASED"
)

func (t FacilityType) Valid() bool {
	switch t {
	case FacilityPublic, FacilityPrivate, FacilityFaithBased:
		return true
	}
	return false
}

type Provider struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	FacilityCode      string        `json:"facility_code"`
	FacilityName      string        `json:"facility_name"`
	FacilityLevel     FacilityLevel `json:"facility_level"`
	FacilityType      FacilityType  `json:"facility_type"`
	LicenseNumber     string        `json:"license_number"`
	KMPDBNumber       string        `json:"kmpdb_number" gorm:"column:kmpdb_number"`
	Email             string        `json:"email"`
	PhoneNumber       string        `json:"phone_number"`
	County            string        `json:"county"`
	SubCounty         string        `json:"sub_county"`
	PhysicalAddress   string        `json:"physical_address"`
	BankName          string        `json:"bank_name"`
	BankAccountNumber string        `json:"bank_account_number"`
	BankBranch        string        `json:"bank_branch"`
	IsContracted      bool          `json:"is_contracted"`
	ContractStartDate *time.Time    `json:"contract_start_date,omitempty"`
	ContractEndDate   *time.Time    `json:"contract_end_date,omitempty"`
	IsActive          bool          `json:"is_active"`
	UserID            *snowflake.ID `json:"user_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (Provider) TableName() string { return "healthcare_providers" }
