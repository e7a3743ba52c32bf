package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	providerdomain "github.com/smallbiznis/shaadmin/internal/provider/domain"
	"gorm.io/datatypes"
)

type PackageType string

const (
	PackageSHIF  PackageType = "SHIF"
	PackagePHCF  PackageType = "PHCF"
	PackageECCIF PackageType = "ECCIF"
)

// ParsePackageType accepts the three funds plus any other upper-case
// identifier made of letters, digits and underscores.
func ParsePackageType(value string) (PackageType, bool) {
	v := strings.TrimSpace(value)
	if v == "" || v != strings.ToUpper(v) {
		return "", false
	}
	for _, r := range v {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return "", false
		}
	}
	return PackageType(v), true
}

type ServiceCategory string

const (
	CategoryOutpatient      ServiceCategory = "OUTPATIENT"
	CategoryInpatient       ServiceCategory = "INPATIENT"
	CategoryMaternity       ServiceCategory = "MATERNITY"
	CategorySurgery         ServiceCategory = "SURGERY"
	CategoryRadiology       ServiceCategory = "RADIOLOGY"
	CategoryLaboratory      ServiceCategory = "LABORATORY"
	CategoryDental          ServiceCategory = "DENTAL"
	CategoryDialysis        ServiceCategory = "DIALYSIS"
	CategoryCancerTreatment ServiceCategory = "CANCER_TREATMENT"
	CategoryCardiology      ServiceCategory = "CARDIOLOGY"
	CategoryEmergency       ServiceCategory = "EMERGENCY"
	CategoryChronicIllness  ServiceCategory = "CHRONIC_ILLNESS"
)

var Categories = []ServiceCategory{
	CategoryOutpatient, CategoryInpatient, CategoryMaternity, CategorySurgery,
	CategoryRadiology, CategoryLaboratory, CategoryDental, CategoryDialysis,
	CategoryCancerTreatment, CategoryCardiology, CategoryEmergency, CategoryChronicIllness,
}

func (c ServiceCategory) Valid() bool {
	return slices.Contains(Categories, c)
}

// FacilityLevels is an ordered set, lowest tier first.
type FacilityLevels = datatypes.JSONSlice[providerdomain.FacilityLevel]

// NormalizeLevels de-duplicates and orders levels by tier. It reports false
// when any level is unknown.
func NormalizeLevels(levels []string) (FacilityLevels, bool) {
	seen := make(map[providerdomain.FacilityLevel]struct{}, len(levels))
	out := make(FacilityLevels, 0, len(levels))
	for _, raw := range levels {
		level := providerdomain.FacilityLevel(strings.ToUpper(strings.TrimSpace(raw)))
		if !level.Valid() {
			return nil, false
		}
		if _, dup := seen[level]; dup {
			continue
		}
		seen[level] = struct{}{}
		out = append(out, level)
	}
	slices.SortFunc(out, func(a, b providerdomain.FacilityLevel) int {
		return a.Tier() - b.Tier()
	})
	return out, true
}

type Package struct {
	ID                       snowflake.ID   `json:"id" gorm:"primaryKey"`
	PackageCode              string         `json:"package_code"`
	PackageName              string         `json:"package_name"`
	PackageType              PackageType    `json:"package_type"`
	Description              string         `json:"description"`
	AnnualLimit              int64          `json:"annual_limit"`
	PerIllnessLimit          *int64         `json:"per_illness_limit,omitempty"`
	ApplicableFacilityLevels FacilityLevels `json:"applicable_facility_levels"`
	EffectiveDate            time.Time      `json:"effective_date"`
	EndDate                  *time.Time     `json:"end_date,omitempty"`
	IsActive                 bool           `json:"is_active"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

func (Package) TableName() string { return "benefit_packages" }

// Covers reports whether a facility of the given level may claim under the
// package. An empty level list covers every level.
func (p Package) Covers(level providerdomain.FacilityLevel) bool {
	return len(p.ApplicableFacilityLevels) == 0 || slices.Contains(p.ApplicableFacilityLevels, level)
}

// InEffect reports whether day falls inside the effective window.
func (p Package) InEffect(day time.Time) bool {
	if day.Before(p.EffectiveDate) {
		return false
	}
	return p.EndDate == nil || !day.After(*p.EndDate)
}

type BenefitService struct {
	ID                       snowflake.ID    `json:"id" gorm:"primaryKey"`
	BenefitPackageID         snowflake.ID    `json:"benefit_package_id"`
	ServiceCode              string          `json:"service_code"`
	ServiceName              string          `json:"service_name"`
	ServiceCategory          ServiceCategory `json:"service_category"`
	StandardTariff           int64           `json:"standard_tariff"`
	CopaymentAmount          int64           `json:"copayment_amount"`
	CopaymentPercentage      int             `json:"copayment_percentage"`
	AnnualFrequencyLimit     *int            `json:"annual_frequency_limit,omitempty"`
	PerVisitLimit            *int64          `json:"per_visit_limit,omitempty"`
	RequiresPreauthorization bool            `json:"requires_preauthorization"`
	IsActive                 bool            `json:"is_active"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

func (BenefitService) TableName() string { return "benefit_services" }

// MaxPercentage is 100% in basis points.
const MaxPercentage = 10000

// Copayment is the member's share for quantity units costing total: the
// flat amount per unit plus the percentage of total, never more than total.
func Copayment(svc BenefitService, quantity int, total int64) int64 {
	if total <= 0 || quantity <= 0 {
		return 0
	}
	share := svc.CopaymentAmount * int64(quantity)
	if svc.CopaymentPercentage > 0 {
		share += (total*int64(svc.CopaymentPercentage) + MaxPercentage/2) / MaxPercentage
	}
	return min(share, total)
}
