// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harp",
			Subsystem: "command",
			Name:      "total",
			Help:      "Commands sent to Harp devices by outcome.",
		},
		[]string{"device", "type", "result"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "harp",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Command round-trip time in seconds.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"device", "type"},
	)
	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harp",
			Subsystem: "event",
			Name:      "total",
			Help:      "Device messages not matched to a command.",
		},
		[]string{"device", "outcome"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harp",
			Subsystem: "decode",
			Name:      "errors_total",
			Help:      "Inbound frames rejected by the codec.",
		},
		[]string{"device", "kind"},
	)
	polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harp",
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Replicator poll cycles by outcome.",
		},
		[]string{"unit", "success"},
	)
	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "harp",
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Replicator poll cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"unit"},
	)
	targetWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harp",
			Subsystem: "target",
			Name:      "writes_total",
			Help:      "Mirror writes into target memory by outcome.",
		},
		[]string{"unit", "endpoint", "success"},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commands, commandDuration, events, decodeErrors, polls, pollDuration, targetWrites)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

func RecordCommand(device, msgType, result string, duration time.Duration) {
	Register()
	commands.WithLabelValues(device, msgType, result).Inc()
	commandDuration.WithLabelValues(device, msgType).Observe(duration.Seconds())
}

func RecordEvent(device, outcome string) {
	Register()
	events.WithLabelValues(device, outcome).Inc()
}

func RecordDecodeError(device, kind string) {
	Register()
	decodeErrors.WithLabelValues(device, kind).Inc()
}

func RecordPoll(unit string, success bool, duration time.Duration) {
	Register()
	polls.WithLabelValues(unit, strconv.FormatBool(success)).Inc()
	pollDuration.WithLabelValues(unit).Observe(duration.Seconds())
}

func RecordTargetWrite(unit, endpoint string, success bool) {
	Register()
	targetWrites.WithLabelValues(unit, endpoint, strconv.FormatBool(success)).Inc()
}
