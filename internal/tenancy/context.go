package tenancy

import "context"

type ctxKey string

const (
	officeKey ctxKey = "okdental.office_id"
	actorKey  ctxKey = "okdental.actor"
)

// WithOfficeID stores the office id in context.
func WithOfficeID(ctx context.Context, officeID string) context.Context {
	return context.WithValue(ctx, officeKey, officeID)
}

// OfficeIDFromContext extracts the office id if present.
func OfficeIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(officeKey)
	if val == nil {
		return "", false
	}
	officeID, ok := val.(string)
	return officeID, ok && officeID != ""
}

// WithActor stores the acting identity (user id, "voice-ai", "system") in
// context for audit attribution.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext extracts the acting identity, defaulting to "system".
func ActorFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(actorKey).(string); ok && val != "" {
		return val
	}
	return "system"
}
