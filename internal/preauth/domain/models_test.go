package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusApproved))
	assert.False(t, CanTransition(StatusApproved, StatusApproved))
	assert.False(t, CanTransition(StatusRejected, StatusExpired))
	assert.Equal(t, []Status{StatusPending}, Sources(StatusRejected))
	assert.Equal(t, []Status{StatusApproved}, Sources(StatusExpired))
}

func TestUsableOn(t *testing.T) {
	until := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	p := PreAuthorization{Status: StatusApproved, ValidUntil: &until}
	assert.True(t, p.UsableOn(until))
	assert.False(t, p.UsableOn(until.Add(time.Second)))

	p.Status = StatusExpired
	assert.False(t, p.UsableOn(until))
}
