package services

import "context"

type requestIDKey struct{}

// WithRequestID はログに出すリクエストIDを ctx に設定します。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID は ctx のリクエストIDを返します。
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestTag(ctx context.Context) string {
	if id := RequestID(ctx); id != "" {
		return "[" + id + "]"
	}
	return ""
}
