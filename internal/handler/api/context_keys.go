package api

import "context"

type ctxKey string

const IDKey ctxKey = "id"

func JobIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(IDKey).(int64)
	return id, ok
}
