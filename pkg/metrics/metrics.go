package metrics

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"railsim/pkg/otel"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	meterProvider *sdkmetric.MeterProvider

	// Meter creates instruments. It is a noop meter until InitMetrics succeeds,
	// so instruments are always safe to record on.
	Meter metric.Meter = noop.NewMeterProvider().Meter(otel.ServiceName)

	enabled atomic.Bool

	lastSuccessTimestamp atomic.Int64
	fleetTrains          atomic.Int64
	fleetDelayed         atomic.Int64
	fleetConflicts       atomic.Int64
)

func init() {
	// noop instruments never fail to build
	_ = initializeInstruments()
}

// InitMetrics initializes OpenTelemetry metrics with the configured exporter.
// Returns a shutdown function that should be called on application exit.
func InitMetrics() (func(), error) {
	if !otel.IsMetricsEnabled() {
		slog.Debug("OpenTelemetry metrics is disabled")
		return func() {}, nil
	}

	ctx := context.Background()
	cfg := otel.GetExporterConfig(otel.SignalMetrics)

	exporter, err := otel.NewMetricExporter(ctx, cfg)
	if err != nil {
		slog.Warn("Failed to create OTLP metric exporter, using noop", "error", err)
		return func() {}, nil
	}

	res, err := otel.NewResource()
	if err != nil {
		slog.Warn("Failed to create resource, using noop", "error", err)
		return func() {}, nil
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(60*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	otelapi.SetMeterProvider(meterProvider)
	Meter = meterProvider.Meter(otel.ServiceName)

	if err := initializeInstruments(); err != nil {
		slog.Error("Failed to initialize metric instruments", "error", err)
		return func() {}, nil
	}
	if err := registerGauges(); err != nil {
		slog.Warn("Failed to register gauges", "error", err)
	}
	enabled.Store(true)

	slog.Debug("OpenTelemetry metrics initialized",
		"endpoint", cfg.Endpoint,
		"protocol", cfg.Protocol,
	)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down meter provider", "error", err)
		}
	}, nil
}

func registerGauges() error {
	gauges := []struct {
		name, desc, unit string
		read             func() int64
	}{
		{"runtime.go.goroutines", "Number of goroutines", "{goroutine}", func() int64 { return int64(runtime.NumGoroutine()) }},
		{"runtime.go.mem.heap_alloc", "Heap memory allocated", "By", func() int64 {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return int64(m.HeapAlloc)
		}},
		{"fleet.trains", "Trains in the current snapshot", "{train}", fleetTrains.Load},
		{"fleet.trains.delayed", "Trains with a non-zero delay", "{train}", fleetDelayed.Load},
		{"fleet.trains.conflicts", "Trains flagged with a conflict", "{train}", fleetConflicts.Load},
	}

	for _, g := range gauges {
		read := g.read
		_, err := Meter.Int64ObservableGauge(g.name,
			metric.WithDescription(g.desc),
			metric.WithUnit(g.unit),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(read())
				return nil
			}),
		)
		if err != nil {
			return err
		}
	}

	_, err := Meter.Int64ObservableGauge(
		"driver.last_success.timestamp",
		metric.WithDescription("Unix timestamp of the last successful tick"),
		metric.WithUnit("s"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if ts := lastSuccessTimestamp.Load(); ts > 0 {
				o.Observe(ts)
			}
			return nil
		}),
	)
	return err
}

// RecordLastSuccessTimestamp records the current time as the last successful tick
func RecordLastSuccessTimestamp() {
	lastSuccessTimestamp.Store(time.Now().Unix())
}

// RecordFleet stores the counts reported by the fleet gauges.
func RecordFleet(trains, delayed, conflicts int) {
	fleetTrains.Store(int64(trains))
	fleetDelayed.Store(int64(delayed))
	fleetConflicts.Store(int64(conflicts))
}

// IsEnabled returns true if metrics are exported
func IsEnabled() bool {
	return enabled.Load()
}
