// Package telemetry exposes prometheus counters for the protocol traffic
// and the experiment lifecycle. Everything is registered on a private
// registry so that tests never collide with the default one.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	GossipsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gossipfd",
			Name:      "gossips_sent_total",
			Help:      "Total number of gossip messages sent.",
		},
		[]string{"node"},
	)

	MulticastsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gossipfd",
			Name:      "multicasts_sent_total",
			Help:      "Total number of catastrophe multicasts sent.",
		},
		[]string{"node"},
	)

	CrashReportsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gossipfd",
			Name:      "crash_reports_sent_total",
			Help:      "Total number of crash reports emitted by a node.",
		},
		[]string{"node"},
	)

	StaleTimers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gossipfd",
			Name:      "stale_timers_total",
			Help:      "Timer firings dropped because of a timeout token mismatch.",
		},
		[]string{"node"},
	)

	CrashReportsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gossipfd",
			Name:      "crash_reports_received_total",
			Help:      "Crash reports collected by the tracker.",
		},
	)

	ExperimentsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gossipfd",
			Name:      "experiments_completed_total",
			Help:      "Experiments the tracker has run to completion.",
		},
	)
)

func init() {
	Registry.MustRegister(
		GossipsSent,
		MulticastsSent,
		CrashReportsSent,
		StaleTimers,
		CrashReportsReceived,
		ExperimentsCompleted,
	)
}

// MetricsHandler exposes /metrics for the registry above.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
