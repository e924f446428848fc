package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-policy-admin/internal/utils"
)

type actorKey struct{}

// WithActor records the authenticated principal on ctx. Services stamp it
// on events, exports and uploaded documents.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the principal recorded on ctx, or "system" for background
// work such as the expiry sweep.
func Actor(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}

// pageBounds returns the offset and limit of a (possibly out-of-range)
// page request.
func pageBounds(page, pageSize int) (offset, limit int) { return utils.Offset(page, pageSize) }

func startSpan(ctx context.Context, service, op string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer("services/"+service).Start(ctx, op, opts...)
}

// finishSpan marks the span failed when err is non-nil and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
