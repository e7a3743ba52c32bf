// Package masking redacts sensitive values before they are stored in the
// audit trail.
package masking

import (
	"fmt"
	"strings"
)

const maskToken = "****"

var sensitiveFields = map[string]struct{}{
	"national_id":         {},
	"password_hash":       {},
	"password":            {},
	"bank_account_number": {},
	"account_number":      {},
	"kra_pin":             {},
}

// Sensitive reports whether values of field must be masked.
func Sensitive(field string) bool {
	_, ok := sensitiveFields[strings.ToLower(strings.TrimSpace(field))]
	return ok
}

// MaskSecret keeps at most the last four characters.
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return maskToken
	}
	return maskToken + value[len(value)-4:]
}

// MaskValue masks any scalar by its string form; nil stays nil.
func MaskValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return MaskSecret(v)
	case *string:
		if v == nil {
			return nil
		}
		return MaskSecret(*v)
	default:
		return MaskSecret(fmt.Sprint(v))
	}
}
