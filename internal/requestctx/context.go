// Package requestctx provides request-scoped values (e.g. request_id) set by middleware.
package requestctx

import "context"

type contextKey struct{}

var requestIDKey = &contextKey{}

// SetRequestID stores the request correlation ID in the context.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request correlation ID from context, or "" if not set.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
