package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter                 metric.Meter
	queuedJobsGauge       metric.Int64ObservableGauge
	scheduledRetriesGauge metric.Int64ObservableGauge
	eventStatusGauge      metric.Int64ObservableGauge
	activeWorkersGauge    metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"webhook-dispatch",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.queuedJobsGauge, err = oe.meter.Int64ObservableGauge(
		"delivery.queue.depth",
		metric.WithDescription("Number of delivery jobs on the stream"),
		metric.WithUnit("{jobs}"),
		metric.WithInt64Callback(oe.observeQueuedJobs),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}

	oe.scheduledRetriesGauge, err = oe.meter.Int64ObservableGauge(
		"delivery.retries.scheduled",
		metric.WithDescription("Number of delayed retry jobs awaiting promotion"),
		metric.WithUnit("{jobs}"),
		metric.WithInt64Callback(oe.observeScheduledRetries),
	)
	if err != nil {
		return fmt.Errorf("creating scheduled retries gauge: %w", err)
	}

	oe.eventStatusGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.events.status.count",
		metric.WithDescription("Number of webhook events by lifecycle status"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeEventStatusCounts),
	)
	if err != nil {
		return fmt.Errorf("creating event status gauge: %w", err)
	}

	oe.activeWorkersGauge, err = oe.meter.Int64ObservableGauge(
		"delivery.workers.active",
		metric.WithDescription("Number of active delivery workers"),
		metric.WithUnit("{workers}"),
		metric.WithInt64Callback(oe.observeActiveWorkers),
	)
	if err != nil {
		return fmt.Errorf("creating active workers gauge: %w", err)
	}

	return nil
}

// observeQueuedJobs is a callback that reports the delivery stream depth
func (oe *OTelExporter) observeQueuedJobs(ctx context.Context, observer metric.Int64Observer) error {
	queued, err := oe.collector.GetQueuedJobs(ctx)
	if err != nil {
		return err
	}

	observer.Observe(queued)
	return nil
}

// observeScheduledRetries is a callback that reports delayed retry counts
func (oe *OTelExporter) observeScheduledRetries(ctx context.Context, observer metric.Int64Observer) error {
	scheduled, err := oe.collector.GetScheduledRetries(ctx)
	if err != nil {
		return err
	}

	observer.Observe(scheduled)
	return nil
}

// observeEventStatusCounts is a callback that reports event counts by status
func (oe *OTelExporter) observeEventStatusCounts(ctx context.Context, observer metric.Int64Observer) error {
	statusCounts, err := oe.collector.GetEventStatusCounts(ctx)
	if err != nil {
		return err
	}

	for status, count := range statusCounts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("event.status", status),
		))
	}

	return nil
}

// observeActiveWorkers is a callback that reports active worker counts
func (oe *OTelExporter) observeActiveWorkers(ctx context.Context, observer metric.Int64Observer) error {
	workers, err := oe.collector.GetActiveWorkers(ctx)
	if err != nil {
		return err
	}

	observer.Observe(int64(len(workers)))
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
