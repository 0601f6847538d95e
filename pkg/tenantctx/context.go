package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const (
	userIDKey keyType = "user_id"
)

// WithUserID binds the authenticated tenant user to the context.
func WithUserID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the tenant user bound to the context, if any.
func UserID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(userIDKey).(snowflake.ID)
	return id, ok
}
