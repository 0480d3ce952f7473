package outbox

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "community-backend/outbox"

type publisherMetrics struct {
	published         metric.Int64Counter
	failed            metric.Int64Counter
	stateUpdateFailed metric.Int64Counter
	hookFailed        metric.Int64Counter
	batchDuration     metric.Float64Histogram
}

func newPublisherMetrics(provider metric.MeterProvider) (publisherMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		m   publisherMetrics
		err error
	)

	m.published, err = meter.Int64Counter(
		"outbox.events.published",
		metric.WithDescription("Outbox events delivered to the broker and marked published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return publisherMetrics{}, fmt.Errorf("create outbox.events.published counter: %w", err)
	}

	m.failed, err = meter.Int64Counter(
		"outbox.events.failed",
		metric.WithDescription("Outbox delivery attempts that failed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return publisherMetrics{}, fmt.Errorf("create outbox.events.failed counter: %w", err)
	}

	m.stateUpdateFailed, err = meter.Int64Counter(
		"outbox.events.state_update_failed",
		metric.WithDescription("Outbox events whose status could not be persisted after a delivery attempt"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return publisherMetrics{}, fmt.Errorf("create outbox.events.state_update_failed counter: %w", err)
	}

	m.hookFailed, err = meter.Int64Counter(
		"outbox.hooks.failed",
		metric.WithDescription("Post-publish hooks that returned an error"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return publisherMetrics{}, fmt.Errorf("create outbox.hooks.failed counter: %w", err)
	}

	m.batchDuration, err = meter.Float64Histogram(
		"outbox.batch.duration",
		metric.WithDescription("Time taken per publish batch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return publisherMetrics{}, fmt.Errorf("create outbox.batch.duration histogram: %w", err)
	}

	return m, nil
}
