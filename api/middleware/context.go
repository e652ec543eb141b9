package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxOwnerID contextKey = "owner_id"

// OwnerIDFromContext returns the authenticated user's id, or uuid.Nil when
// the request was not authenticated.
func OwnerIDFromContext(ctx context.Context) uuid.UUID {
	raw, ok := ctx.Value(ctxOwnerID).(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// WithOwnerID seeds the context with an authenticated user id. Exported for
// handler tests.
func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxOwnerID, ownerID.String())
}
