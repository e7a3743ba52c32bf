package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(StatusSubmitted, StatusUnderReview))
	assert.True(t, CanTransition(StatusApproved, StatusPaid))
	assert.False(t, CanTransition(StatusSubmitted, StatusApproved))
	assert.False(t, CanTransition(StatusPaid, StatusRejected))
	assert.False(t, CanTransition(StatusUnderReview, StatusQueried))

	assert.Equal(t, []Status{StatusSubmitted, StatusUnderReview, StatusApproved, StatusQueried}, Sources(StatusRejected))
	assert.Equal(t, []Status{StatusUnderReview}, Sources(StatusApproved))
	assert.Empty(t, Sources(StatusQueried))
}

func TestAdjustable(t *testing.T) {
	assert.True(t, StatusSubmitted.Adjustable())
	assert.True(t, StatusUnderReview.Adjustable())
	assert.False(t, StatusApproved.Adjustable())
}
