// Package observe provides observability primitives for ezloot:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// through a Prometheus bridge set up by [InitProvider], so the ops endpoint
// can serve a standard /metrics scrape. Tests should build their own
// [Metrics] via [NewMetrics] with a private [metric.MeterProvider].
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all ezloot metrics.
const meterName = "github.com/ezloot/ezloot"

// Metrics holds the OTel instruments for the bot. All fields are safe for
// concurrent use; the underlying OTel types synchronise themselves.
type Metrics struct {
	// CommandDuration tracks slash command handling latency. Attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	CommandDuration metric.Float64Histogram

	// CommandInvocations counts slash command invocations. Attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	CommandInvocations metric.Int64Counter

	// LedgerErrors counts failed ledger operations. Attributes:
	//   attribute.String("command", ...), attribute.String("kind", ...)
	LedgerErrors metric.Int64Counter

	// LootAssigned counts loot pieces awarded.
	LootAssigned metric.Int64Counter

	// PlayersRegistered tracks the current number of registered players.
	PlayersRegistered metric.Int64UpDownCounter

	// HTTPRequestDuration tracks ops endpoint latency. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries in seconds. Commands
// spend most of their time in one store round trip, so the buckets skew low.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CommandDuration, err = m.Float64Histogram("ezloot.command.duration",
		metric.WithDescription("Slash command handling latency by command and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CommandInvocations, err = m.Int64Counter("ezloot.command.invocations",
		metric.WithDescription("Total slash command invocations by command and status."),
	); err != nil {
		return nil, err
	}
	if met.LedgerErrors, err = m.Int64Counter("ezloot.ledger.errors",
		metric.WithDescription("Failed ledger operations by command and error kind."),
	); err != nil {
		return nil, err
	}
	if met.LootAssigned, err = m.Int64Counter("ezloot.loot.assigned",
		metric.WithDescription("Total loot pieces awarded."),
	); err != nil {
		return nil, err
	}
	if met.PlayersRegistered, err = m.Int64UpDownCounter("ezloot.players.registered",
		metric.WithDescription("Current number of registered players."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("ezloot.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from [otel.GetMeterProvider]. Panics if instrument creation fails,
// which cannot happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
