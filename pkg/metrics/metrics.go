package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "solarbridge_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal    *prometheus.CounterVec
	runLatency   *prometheus.HistogramVec
	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	emitTotal    *prometheus.CounterVec
	cumulative   *prometheus.GaugeVec
)

// Init registers the metrics with the given registerer. Only the first call
// has any effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total update runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Update run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_total",
				Help: "Total fetches by source and result",
			},
			[]string{"source", "result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Fetch latency in seconds by source",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)
		emitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "emissions_total",
				Help: "Total event emissions by device and result",
			},
			[]string{"device", "result"},
		)
		cumulative = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "cumulative_energy_kwh",
				Help: "Last computed cumulative energy per device component",
			},
			[]string{"device", "component"},
		)

		reg.MustRegister(
			runsTotal,
			runLatency,
			fetchTotal,
			fetchLatency,
			emitTotal,
			cumulative,
		)
	})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// ObserveRun records a run's duration and result.
func ObserveRun(err error, duration time.Duration) {
	r := result(err)
	if runsTotal != nil {
		runsTotal.WithLabelValues(r).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(r).Observe(duration.Seconds())
	}
}

// ObserveFetch records a fetch from source ("solaredge" or "smartthings").
func ObserveFetch(source string, err error, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(source, result(err)).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// IncEmission increments the emission counter for a device.
func IncEmission(device string, err error) {
	if emitTotal != nil {
		emitTotal.WithLabelValues(device, result(err)).Inc()
	}
}

// SetCumulative records the cumulative energy computed for a component.
func SetCumulative(device, component string, kwh float64) {
	if cumulative != nil {
		cumulative.WithLabelValues(device, component).Set(kwh)
	}
}
