// Package metrics exposes Prometheus collectors for the supervised daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// processRunning is 1 while a process with the supervised name is observed.
	processRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncthingtray_process_running",
			Help: "Whether the supervised daemon is running (1) or not (0)",
		},
	)

	// processOwned is 1 while the running daemon was started by this tray instance.
	processOwned = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncthingtray_process_owned",
			Help: "Whether the running daemon was started by this tray instance",
		},
	)

	startsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "syncthingtray_starts_total",
			Help: "Daemon processes started by the tray",
		},
	)

	stopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncthingtray_stops_total",
			Help: "Successful stop requests by lookup method (handle or name)",
		},
		[]string{"method"},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncthingtray_failures_total",
			Help: "Failed user actions by error kind",
		},
		[]string{"kind"},
	)

	exitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "syncthingtray_unexpected_exits_total",
			Help: "Owned daemon processes that exited without a stop request",
		},
	)

	outputLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncthingtray_output_lines_total",
			Help: "Lines captured from the daemon's output by stream",
		},
		[]string{"stream"},
	)

	pollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "syncthingtray_polls_total",
			Help: "Status poll ticks executed",
		},
	)
)

// Registry holds every collector of this package.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		processRunning,
		processOwned,
		startsTotal,
		stopsTotal,
		failuresTotal,
		exitsTotal,
		outputLinesTotal,
		pollsTotal,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetState records the latest observed running and ownership state.
func SetState(running, owned bool) {
	processRunning.Set(boolToFloat(running))
	processOwned.Set(boolToFloat(owned))
}

// ObserveStart counts a started daemon.
func ObserveStart() { startsTotal.Inc() }

// ObserveStop counts a successful stop by method.
func ObserveStop(method string) { stopsTotal.WithLabelValues(method).Inc() }

// ObserveFailure counts a failed action by error kind.
func ObserveFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	failuresTotal.WithLabelValues(kind).Inc()
}

// ObserveExit counts an owned daemon that exited on its own.
func ObserveExit() { exitsTotal.Inc() }

// ObserveOutput counts captured lines for a stream.
func ObserveOutput(stream string, n int) {
	if n > 0 {
		outputLinesTotal.WithLabelValues(stream).Add(float64(n))
	}
}

// ObservePoll counts a poll tick.
func ObservePoll() { pollsTotal.Inc() }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
