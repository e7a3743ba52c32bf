package domain

import (
	"testing"
	"time"

	providerdomain "github.com/smallbiznis/shaadmin/internal/provider/domain"
	"github.com/stretchr/testify/assert"
)

func TestCopayment(t *testing.T) {
	cases := []struct {
		name     string
		svc      BenefitService
		quantity int
		total    int64
		want     int64
	}{
		{"none", BenefitService{}, 1, 150000, 0},
		{"flat per unit", BenefitService{CopaymentAmount: 5000}, 3, 150000, 15000},
		{"percentage", BenefitService{CopaymentPercentage: 1000}, 1, 150000, 15000},
		{"percentage rounds half up", BenefitService{CopaymentPercentage: 250}, 1, 1010, 25},
		{"flat and percentage", BenefitService{CopaymentAmount: 1000, CopaymentPercentage: 500}, 2, 20000, 3000},
		{"capped at total", BenefitService{CopaymentAmount: 9000}, 2, 10000, 10000},
		{"zero total", BenefitService{CopaymentAmount: 9000}, 1, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Copayment(tc.svc, tc.quantity, tc.total))
		})
	}
}

func TestNormalizeLevels(t *testing.T) {
	levels, ok := NormalizeLevels([]string{"level_5", "LEVEL_2", "LEVEL_5", " LEVEL_3 "})
	assert.True(t, ok)
	assert.Equal(t, FacilityLevels{providerdomain.Level2, providerdomain.Level3, providerdomain.Level5}, levels)

	_, ok = NormalizeLevels([]string{"LEVEL_7"})
	assert.False(t, ok)

	levels, ok = NormalizeLevels(nil)
	assert.True(t, ok)
	assert.Empty(t, levels)
}

func TestParsePackageType(t *testing.T) {
	for _, v := range []string{"SHIF", "PHCF", "ECCIF", "MENTAL_HEALTH"} {
		got, ok := ParsePackageType(v)
		assert.True(t, ok, v)
		assert.Equal(t, PackageType(v), got)
	}
	for _, v := range []string{"", "shif", "SHIF FUND", "SHIF-2"} {
		_, ok := ParsePackageType(v)
		assert.False(t, ok, v)
	}
}

func TestPackageCoversAndInEffect(t *testing.T) {
	end := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	p := Package{
		ApplicableFacilityLevels: FacilityLevels{providerdomain.Level4, providerdomain.Level5},
		EffectiveDate:            time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:                  &end,
	}
	assert.True(t, p.Covers(providerdomain.Level4))
	assert.False(t, p.Covers(providerdomain.Level2))
	assert.True(t, Package{}.Covers(providerdomain.Level2))

	assert.False(t, p.InEffect(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.InEffect(end))
	assert.False(t, p.InEffect(end.AddDate(0, 0, 1)))
}
