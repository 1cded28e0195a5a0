package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type roleKey struct{}
type actorKey struct{}

// WithRequestID annotates ctx with the inbound request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithActor records who is acting and under which role.
func WithActor(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
	return context.WithValue(ctx, roleKey{}, strings.ToLower(strings.TrimSpace(role)))
}

func ActorFromContext(ctx context.Context) (actorID string, role string) {
	if ctx == nil {
		return "", ""
	}
	actorID, _ = ctx.Value(actorKey{}).(string)
	role, _ = ctx.Value(roleKey{}).(string)
	return actorID, role
}
