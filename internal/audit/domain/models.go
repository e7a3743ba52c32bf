package domain

import (
	"reflect"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionUpdate       Action = "UPDATE"
	ActionDelete       Action = "DELETE"
	ActionLogin        Action = "LOGIN"
	ActionLogout       Action = "LOGOUT"
	ActionApprove      Action = "APPROVE"
	ActionReject       Action = "REJECT"
	ActionPayment      Action = "PAYMENT"
	ActionAccessDenied Action = "ACCESS_DENIED"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout,
		ActionApprove, ActionReject, ActionPayment, ActionAccessDenied:
		return true
	}
	return false
}

// Change is one field's before and after value.
type Change struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// AuditLog rows are append-only.
type AuditLog struct {
	ID         snowflake.ID                `json:"id" gorm:"primaryKey"`
	UserID     *snowflake.ID               `json:"user_id,omitempty"`
	Action     Action                      `json:"action"`
	ModelName  string                      `json:"model_name"`
	ObjectID   string                      `json:"object_id"`
	ObjectRepr string                      `json:"object_repr"`
	Changes    datatypes.JSONSlice[Change] `json:"changes"`
	IPAddress  string                      `json:"ip_address,omitempty"`
	UserAgent  string                      `json:"user_agent,omitempty"`
	CreatedAt  time.Time                   `json:"timestamp"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what a service hands to Record; actor and client fields come
// from the request context.
type Entry struct {
	Action     Action
	ModelName  string
	ObjectID   snowflake.ID
	ObjectRepr string
	Changes    []Change
}

// ChangeSet collects field changes, skipping unchanged values.
type ChangeSet []Change

func (c *ChangeSet) Add(field string, before, after any) {
	if reflect.DeepEqual(before, after) {
		return
	}
	*c = append(*c, Change{Field: field, Before: before, After: after})
}

// Set records a value on creation.
func (c *ChangeSet) Set(field string, after any) {
	*c = append(*c, Change{Field: field, After: after})
}
