package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "github.com/kbukum/brokerkit"

// InitMeter initializes the OTLP meter provider and installs it globally.
func InitMeter(ctx context.Context, cfg Config, serviceName string) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(serviceName)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the brokerkit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the access layer's metric instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requestTotal     metric.Int64Counter
	requestDuration  metric.Float64Histogram
	refreshTotal     metric.Int64Counter
	refreshDuration  metric.Float64Histogram
	throttleWaits    metric.Int64Counter
	throttleWaitTime metric.Float64Histogram
	streamsActive    metric.Int64UpDownCounter
	streamsClosed    metric.Int64Counter
	streamFrames     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.requestTotal, err = meter.Int64Counter("brokerkit.request.total",
		metric.WithDescription("Transport requests by method and status class"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.request.total counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("brokerkit.request.duration",
		metric.WithDescription("Transport request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.request.duration histogram: %w", err)
	}
	if m.refreshTotal, err = meter.Int64Counter("brokerkit.credential.refresh.total",
		metric.WithDescription("Network token refreshes by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.credential.refresh.total counter: %w", err)
	}
	if m.refreshDuration, err = meter.Float64Histogram("brokerkit.credential.refresh.duration",
		metric.WithDescription("Token refresh round-trip time"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.credential.refresh.duration histogram: %w", err)
	}
	if m.throttleWaits, err = meter.Int64Counter("brokerkit.throttle.waits",
		metric.WithDescription("Callers that queued behind an exhausted rate window"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.throttle.waits counter: %w", err)
	}
	if m.throttleWaitTime, err = meter.Float64Histogram("brokerkit.throttle.wait.duration",
		metric.WithDescription("Time spent queued in the throttle"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.throttle.wait.duration histogram: %w", err)
	}
	if m.streamsActive, err = meter.Int64UpDownCounter("brokerkit.streams.active",
		metric.WithDescription("Open logical streams"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.streams.active gauge: %w", err)
	}
	if m.streamsClosed, err = meter.Int64Counter("brokerkit.streams.closed",
		metric.WithDescription("Stream teardowns by reason (end, error, closed)"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.streams.closed counter: %w", err)
	}
	if m.streamFrames, err = meter.Int64Counter("brokerkit.stream.frames",
		metric.WithDescription("Stream frames by result (emitted, dropped)"),
	); err != nil {
		return nil, fmt.Errorf("creating brokerkit.stream.frames counter: %w", err)
	}
	return &m, nil
}

// NopMetrics returns instruments bound to a no-op meter.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

// RecordRequest records a completed transport request.
func (m *Metrics) RecordRequest(ctx context.Context, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("method", method)))
}

// RecordRefresh records one network refresh with outcome "success",
// "transport" or "rejected".
func (m *Metrics) RecordRefresh(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.refreshTotal.Add(ctx, 1, attrs)
	m.refreshDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordThrottleWait records a caller that had to queue for endpoint.
func (m *Metrics) RecordThrottleWait(ctx context.Context, endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint))
	m.throttleWaits.Add(ctx, 1, attrs)
	m.throttleWaitTime.Record(ctx, d.Seconds(), attrs)
}

// StreamOpened increments the open stream gauge.
func (m *Metrics) StreamOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamsActive.Add(ctx, 1)
}

// StreamClosed decrements the open stream gauge and counts the teardown
// by reason.
func (m *Metrics) StreamClosed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.streamsActive.Add(ctx, -1)
	m.streamsClosed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordFrame counts a stream frame as "emitted" or "dropped".
func (m *Metrics) RecordFrame(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.streamFrames.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
