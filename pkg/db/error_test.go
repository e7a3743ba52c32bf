package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: gorm.ErrDuplicatedKey, want: true},
		{name: "pg", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "members_email_key"}), want: true},
		{name: "pg other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "mysql", err: errors.New("Error 1062 (23000): Duplicate entry"), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: members.email"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestConstraintName(t *testing.T) {
	assert.Equal(t, "members_email_key", ConstraintName(&pgconn.PgError{Code: "23505", ConstraintName: "members_email_key"}))
	assert.Equal(t, "contributions.member_id, contributions.contribution_month",
		ConstraintName(errors.New("UNIQUE constraint failed: contributions.member_id, contributions.contribution_month")))
	assert.Equal(t, "", ConstraintName(errors.New("boom")))
}

func TestDuplicateKey(t *testing.T) {
	key, ok := DuplicateKey(errors.New("UNIQUE constraint failed: users.phone_number"), "username", "email", "phone_number")
	assert.True(t, ok)
	assert.Equal(t, "phone_number", key)

	key, ok = DuplicateKey(&pgconn.PgError{Code: "23505", ConstraintName: "ux_contributions_member_month"}, "transaction_reference", "member_month", "contribution_month")
	assert.True(t, ok)
	assert.Equal(t, "member_month", key)

	key, ok = DuplicateKey(gorm.ErrDuplicatedKey, "email")
	assert.True(t, ok)
	assert.Empty(t, key)

	_, ok = DuplicateKey(errors.New("boom"), "email")
	assert.False(t, ok)
}
