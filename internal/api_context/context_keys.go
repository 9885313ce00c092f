package api_context

import "context"

type ctxKey string

const AuthUserIDKey ctxKey = "authUserID"

func AuthUserIDFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(AuthUserIDKey).(string)
	return sub, ok
}
