package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/forrex322/shop/internal/service")

// startSpan opens an internal span tagged with the cart owner.
func startSpan(ctx context.Context, name string, owner domain.Owner) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("shop.owner", owner.Key()),
		attribute.Bool("shop.customer", owner.IsCustomer()),
	))
}
