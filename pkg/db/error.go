package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsDuplicateKeyErr reports whether err is a unique constraint violation on any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key value violates unique constraint"):
		return true
	case strings.Contains(msg, "Error 1062"):
		return true
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return true
	}
	return false
}

// ConstraintName returns the violated constraint when the driver exposes it.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	msg := err.Error()
	if idx := strings.Index(msg, "UNIQUE constraint failed: "); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("UNIQUE constraint failed: "):])
	}
	return ""
}

// DuplicateKey reports which of keys a uniqueness violation names. Keys are
// matched as substrings of the constraint, so both the sqlite column list
// and a postgres index name resolve. The second result is false when err is
// not a uniqueness violation; an unmatched violation yields "" and true.
func DuplicateKey(err error, keys ...string) (string, bool) {
	if !IsDuplicateKeyErr(err) {
		return "", false
	}
	name := ConstraintName(err)
	if name == "" {
		name = err.Error()
	}
	for _, key := range keys {
		if strings.Contains(name, key) {
			return key, true
		}
	}
	return "", true
}
