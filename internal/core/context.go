package core

import "context"

type contextKey string

const (
	ctxKeyPassID  contextKey = "sync_pass_id"
	ctxKeyTrigger contextKey = "sync_trigger"
)

// ContextWithPassID adds the pass ID to context for log correlation.
func ContextWithPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyPassID, id)
}

// ContextWithTrigger records what started a pass ("cli", "http", "schedule").
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// GetPassIDFromContext extracts the pass ID from context.
func GetPassIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPassID).(string); ok {
		return v
	}
	return ""
}

// GetTriggerFromContext extracts the pass trigger from context.
func GetTriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok {
		return v
	}
	return ""
}
