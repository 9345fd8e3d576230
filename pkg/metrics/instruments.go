package metrics

import (
	"go.opentelemetry.io/otel/metric"
)

// Driver Metrics
var (
	// DriverTicksTotal counts refresh ticks by outcome (ok|error)
	DriverTicksTotal metric.Int64Counter

	// DriverTickDuration measures how long one tick takes, observers included
	DriverTickDuration metric.Float64Histogram

	// DriverErrorsTotal counts failed ticks by error type
	DriverErrorsTotal metric.Int64Counter

	// DriverObserverDuration measures time spent in each snapshot observer
	DriverObserverDuration metric.Float64Histogram

	// DriverSnapshotsDropped counts snapshots an async observer fell too far
	// behind to receive
	DriverSnapshotsDropped metric.Int64Counter
)

// Sink and source metrics
var (
	// LokiSendDuration measures the duration of Loki push operations
	LokiSendDuration metric.Float64Histogram

	// LokiSendTotal counts Loki pushes by status
	LokiSendTotal metric.Int64Counter

	// UpstreamRequestsTotal counts upstream fleet fetches by status
	UpstreamRequestsTotal metric.Int64Counter
)

// API Metrics
var (
	// APISnapshotReads counts snapshot reads served by the HTTP API
	APISnapshotReads metric.Int64Counter
)

// Control desk metrics
var (
	// ControlDecisionsTotal counts recommendation decisions (accepted|modified|dismissed)
	ControlDecisionsTotal metric.Int64Counter

	// ControlNotificationsTotal counts raised notifications by type
	ControlNotificationsTotal metric.Int64Counter
)

func initializeInstruments() error {
	var err error

	DriverTicksTotal, err = Meter.Int64Counter(
		"driver.ticks.total",
		metric.WithDescription("Total number of refresh ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	DriverTickDuration, err = Meter.Float64Histogram(
		"driver.tick.duration",
		metric.WithDescription("Duration of refresh ticks"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0),
	)
	if err != nil {
		return err
	}

	DriverErrorsTotal, err = Meter.Int64Counter(
		"driver.errors.total",
		metric.WithDescription("Failed refresh ticks by error type"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	DriverObserverDuration, err = Meter.Float64Histogram(
		"driver.observer.duration",
		metric.WithDescription("Time spent delivering a snapshot to one observer"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	DriverSnapshotsDropped, err = Meter.Int64Counter(
		"driver.snapshots.dropped",
		metric.WithDescription("Snapshots dropped by full async observer queues"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return err
	}

	LokiSendDuration, err = Meter.Float64Histogram(
		"loki.send.duration",
		metric.WithDescription("Duration of Loki push operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	LokiSendTotal, err = Meter.Int64Counter(
		"loki.send.total",
		metric.WithDescription("Total Loki sends by status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	UpstreamRequestsTotal, err = Meter.Int64Counter(
		"upstream.requests.total",
		metric.WithDescription("Total upstream fleet requests by status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	APISnapshotReads, err = Meter.Int64Counter(
		"api.snapshot.reads",
		metric.WithDescription("Snapshot reads served by the HTTP API"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	ControlDecisionsTotal, err = Meter.Int64Counter(
		"control.decisions.total",
		metric.WithDescription("Recommendation decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	ControlNotificationsTotal, err = Meter.Int64Counter(
		"control.notifications.total",
		metric.WithDescription("Notifications raised by type"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	return nil
}
