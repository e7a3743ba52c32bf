// Package actorcontext carries the authenticated caller and request
// correlation fields through a request's context.
package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type (
	actorKey     struct{}
	requestIDKey struct{}
	ipAddressKey struct{}
	userAgentKey struct{}
)

// Actor is the identity the upstream authentication layer vouched for.
type Actor struct {
	UserID snowflake.ID
	Role   string
}

// System is used for sweeps and CLI commands that run without a user.
var System = Actor{Role: "SYSTEM"}

func (a Actor) IsSystem() bool {
	return a.UserID == 0
}

// Subject is the casbin subject for the actor.
func (a Actor) Subject() string {
	if a.IsSystem() {
		return "system"
	}
	return "user:" + a.UserID.String()
}

// UserIDPtr returns nil for the system actor so it can be stored in nullable columns.
func (a Actor) UserIDPtr() *snowflake.ID {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// ActorOrSystem falls back to the system actor when no user is attached.
func ActorOrSystem(ctx context.Context) Actor {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor
	}
	return System
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return withString(ctx, ipAddressKey{}, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	return stringValue(ctx, ipAddressKey{})
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return withString(ctx, userAgentKey{}, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	return stringValue(ctx, userAgentKey{})
}

func withString(ctx context.Context, key any, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
