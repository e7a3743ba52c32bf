package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name     string
		standing MemberStanding
		want     Verdict
	}{
		{"current", MemberStanding{Found: true, Active: true, HasRecentCredit: true}, Verdict{Eligible: true, UpToDate: true}},
		{"subsidized", MemberStanding{Found: true, Active: true, Subsidized: true}, Verdict{Eligible: true, UpToDate: true}},
		{"lapsed", MemberStanding{Found: true, Active: true}, Verdict{Reason: ReasonNoContributions}},
		{"inactive", MemberStanding{Found: true, HasRecentCredit: true}, Verdict{UpToDate: true, Reason: ReasonInactive}},
		{"inactive and lapsed", MemberStanding{Found: true}, Verdict{Reason: ReasonInactive}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.standing))
		})
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2025, time.March, 31, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 1))
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 0))
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 3))
}
