package middleware

import "context"

type contextKey string

const ctxCentre contextKey = "centre"

// CentreFromContext returns the centre resolved by RequireCentre.
func CentreFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCentre).(string); ok {
		return v
	}
	return ""
}

// WithCentre injects the centre identifier into the context for downstream handlers.
func WithCentre(ctx context.Context, centre string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCentre, centre)
}
