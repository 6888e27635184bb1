package auth

import "context"

type tokenContextKey struct{}

// WithToken stores the caller's raw token header value in ctx.
func WithToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, raw)
}

// TokenFromContext returns the raw token header value stored by WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(tokenContextKey{}).(string)
	return raw
}
