// Package events publishes workflow events for downstream consumers once
// the originating transaction has committed.
package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	MemberRegistered      Type = "member.registered"
	MemberDeactivated     Type = "member.deactivated"
	ContributionRecorded  Type = "contribution.recorded"
	ContributionCompleted Type = "contribution.completed"
	ContributionFailed    Type = "contribution.failed"
	ContributionReversed  Type = "contribution.reversed"
	PreAuthRequested      Type = "preauth.requested"
	PreAuthApproved       Type = "preauth.approved"
	PreAuthRejected       Type = "preauth.rejected"
	PreAuthExpired        Type = "preauth.expired"
	ClaimSubmitted        Type = "claim.submitted"
	ClaimUnderReview      Type = "claim.under_review"
	ClaimApproved         Type = "claim.approved"
	ClaimRejected         Type = "claim.rejected"
	ClaimPaid             Type = "claim.paid"
	PaymentCreated        Type = "payment.created"
	PaymentCompleted      Type = "payment.completed"
	PaymentFailed         Type = "payment.failed"
	EligibilityChecked    Type = "eligibility.checked"
)

type Event struct {
	Type       Type           `json:"type"`
	EntityID   snowflake.ID   `json:"entity_id"`
	Reference  string         `json:"reference,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher drops every event.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }
