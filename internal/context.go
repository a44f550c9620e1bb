package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextClientIPKey ctxKey = "clientIP"

// ClientIPFromContext returns the normalized caller address stored by the
// client IP middleware, or "Unknown" outside of a request.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return "Unknown"
	}
	if ip, ok := ctx.Value(ContextClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "Unknown"
}

func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextClientIPKey, ip)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
