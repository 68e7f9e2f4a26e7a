package models

import "context"

type actorContextKey struct{}

// SystemActor is recorded when no authenticated caller is attached to the context.
const SystemActor = "system"

// WithActor attaches the authenticated caller's user id to a context.
func WithActor(ctx context.Context, actorId string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorId)
}

// ActorFromContext returns the caller attached by WithActor, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorContextKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
