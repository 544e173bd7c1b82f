package middleware

import "context"

type contextKey uint8

const (
	requestIDKey contextKey = iota + 1
	clientIPKey
)

func withValue(ctx context.Context, key contextKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithRequestID injects the request identifier into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// WithClientIP stores the resolved caller address used for rate limit scopes.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return withValue(ctx, clientIPKey, ip)
}

func ClientIPFromContext(ctx context.Context) string { return stringValue(ctx, clientIPKey) }
