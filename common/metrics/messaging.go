package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type MessagingMetrics struct {
	messagesPublished         metric.Int64Counter
	messagesConsumed          metric.Int64Counter
	messageProcessingDuration metric.Float64Histogram
	messageErrors             metric.Int64Counter
	publishDuration           metric.Float64Histogram
}

func NewMessagingMetrics(meter metric.Meter) (*MessagingMetrics, error) {
	mm := &MessagingMetrics{}

	var err error

	mm.messagesPublished, err = meter.Int64Counter(
		"messaging.messages.published",
		metric.WithDescription("Total number of events published"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	mm.messagesConsumed, err = meter.Int64Counter(
		"messaging.messages.consumed",
		metric.WithDescription("Total number of events consumed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	mm.messageProcessingDuration, err = meter.Float64Histogram(
		"messaging.message.processing_duration",
		metric.WithDescription("Time spent handling a consumed event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.1,
			0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
		),
	)
	if err != nil {
		return nil, err
	}

	// Network-bound, so the buckets start at 100µs
	mm.publishDuration, err = meter.Float64Histogram(
		"messaging.message.publish_duration",
		metric.WithDescription("Time spent publishing an event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01,
			0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
		),
	)
	if err != nil {
		return nil, err
	}

	mm.messageErrors, err = meter.Int64Counter(
		"messaging.message.errors",
		metric.WithDescription("Total number of publish or processing errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return mm, nil
}

func (mm *MessagingMetrics) RecordPublish(ctx context.Context, destination string, duration time.Duration, err error) {
	if mm == nil || mm.messagesPublished == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("destination", destination),
	}

	mm.messagesPublished.Add(ctx, 1, metric.WithAttributes(attrs...))
	mm.publishDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		errAttrs := append(attrs, attribute.String("error_type", "publish"))
		mm.messageErrors.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}

func (mm *MessagingMetrics) RecordConsume(ctx context.Context, destination string, processingDuration time.Duration, err error) {
	if mm == nil || mm.messagesConsumed == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("destination", destination),
	}

	mm.messagesConsumed.Add(ctx, 1, metric.WithAttributes(attrs...))
	mm.messageProcessingDuration.Record(ctx, processingDuration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		errAttrs := append(attrs, attribute.String("error_type", "processing"))
		mm.messageErrors.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}
