package logging

import (
	"context"

	"github.com/google/uuid"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying the request correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// GetCorrelationID returns the correlation ID from ctx, or "" when absent.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GenerateCorrelationID mints a fresh UUID correlation ID.
func GenerateCorrelationID() string {
	return uuid.New().String()
}
