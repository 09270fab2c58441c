package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	udpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookd",
			Subsystem: "udp",
			Name:      "requests_total",
			Help:      "Requests handled, by opcode and outcome.",
		},
		[]string{"opcode", "outcome"},
	)
	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookd",
			Subsystem: "udp",
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"opcode"},
	)
	cacheReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookd",
			Subsystem: "udp",
			Name:      "replays_total",
			Help:      "Cached replies retransmitted under at-most-once.",
		},
	)
	simulatedDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookd",
			Subsystem: "netsim",
			Name:      "drops_total",
			Help:      "Datagrams discarded by the loss simulator, by path.",
		},
		[]string{"path"},
	)
	monitorUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookd",
			Subsystem: "monitor",
			Name:      "updates_total",
			Help:      "Monitor update datagrams emitted.",
		},
	)
	replyCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookd",
			Subsystem: "udp",
			Name:      "reply_cache_entries",
			Help:      "Entries held in the at-most-once reply cache.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			udpRequests, handlerDuration, cacheReplays,
			simulatedDrops, monitorUpdates, replyCacheEntries,
		)
	})
}

func RecordRequest(opcode, outcome string, seconds float64) {
	RegisterMetrics()
	udpRequests.WithLabelValues(opcode, outcome).Inc()
	handlerDuration.WithLabelValues(opcode).Observe(seconds)
}

func RecordReplay() {
	RegisterMetrics()
	cacheReplays.Inc()
}

func RecordDrop(path string) {
	RegisterMetrics()
	simulatedDrops.WithLabelValues(path).Inc()
}

func RecordMonitorUpdate() {
	RegisterMetrics()
	monitorUpdates.Inc()
}

func SetReplyCacheSize(n int) {
	RegisterMetrics()
	replyCacheEntries.Set(float64(n))
}
