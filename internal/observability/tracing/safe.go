package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Span attributes must never carry member identity data.
var blockedAttributeFragments = []string{
	"national_id",
	"phone",
	"email",
	"name",
	"password",
	"token",
	"diagnosis",
}

// SafeAttributes drops attributes whose key looks like personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if blockedKey(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

func blockedKey(key string) bool {
	key = strings.ToLower(key)
	if key == "service.name" {
		return false
	}
	for _, fragment := range blockedAttributeFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// SafeError replaces the error with a generic one that keeps only its type
// name so messages with bound values do not reach the exporter.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.IndexAny(msg, ":("); idx > 0 {
		msg = msg[:idx]
	}
	msg = strings.TrimSpace(msg)
	if len(msg) > 64 {
		msg = msg[:64]
	}
	return errors.New(msg)
}

// ExtractContext reads the upstream trace context from a carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// InjectContext writes the current trace context into a carrier.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}
