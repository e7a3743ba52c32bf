package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/members"),
		attribute.String("member.national_id", "12345678"),
		attribute.String("member.phone_number", "0700"),
		attribute.String("service.name", "shaadmin"),
	)

	keys := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, string(attr.Key))
	}
	assert.ElementsMatch(t, []string{"http.route", "service.name"}, keys)
}

func TestSafeErrorTruncatesDetail(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("duplicate key value: national_id=123")), "duplicate key value")
}
