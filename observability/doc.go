// Package observability provides OpenTelemetry metrics and tracing for the
// brokerkit access layer.
//
// The instruments in Metrics describe the three resilience subsystems:
// token refreshes, throttle waits and open streams, plus transport requests.
// They are recorded against whatever MeterProvider is installed; Setup
// installs OTLP HTTP exporters when telemetry is enabled, otherwise the
// global no-op providers stay in place.
//
//	shutdown, err := observability.Setup(ctx, cfg.Telemetry, "brokerkit")
//	defer shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	metrics.RecordRefresh(ctx, "success", time.Since(start))
package observability
