// internal/logging/context.go
package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if tabID, ok := TabIDFromContext(ctx); ok {
		fields = append(fields, zap.Int("tab.id", tabID))
	}

	return fields
}

type requestCtxKey struct{}
type tabCtxKey struct{}

// WithRequestID adds a request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithTabID adds the originating browser tab ID to context.
func WithTabID(ctx context.Context, tabID int) context.Context {
	return context.WithValue(ctx, tabCtxKey{}, tabID)
}

// TabIDFromContext extracts the browser tab ID from context.
func TabIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(tabCtxKey{}).(int)
	return id, ok
}
