package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nephd",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands dispatched, by name and response status code.",
		},
		[]string{"command", "status"},
	)
	droppedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nephd",
			Subsystem: "channel",
			Name:      "dropped_lines_total",
			Help:      "Inbound lines dropped without a reply, by reason.",
		},
		[]string{"reason"},
	)
	writeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nephd",
			Subsystem: "channel",
			Name:      "write_failures_total",
			Help:      "Outbound envelope writes that failed or were short.",
		},
	)
	streamTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nephd",
			Subsystem: "stream",
			Name:      "producer_invocations_total",
			Help:      "Stream producer invocations, by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// Drop reasons for dropped_lines_total.
const (
	DropNotJSON    = "not_json"
	DropNotCommand = "not_command"
	DropOversize   = "oversize"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsDispatched, droppedLines, writeFailures, streamTicks)
	})
}

func RecordCommand(command string, status int) {
	RegisterMetrics()
	commandsDispatched.WithLabelValues(command, strconv.Itoa(status)).Inc()
}

func RecordDroppedLine(reason string) {
	RegisterMetrics()
	droppedLines.WithLabelValues(reason).Inc()
}

func RecordWriteFailure() {
	RegisterMetrics()
	writeFailures.Inc()
}

func RecordProducerRun(streamType string, ok bool) {
	RegisterMetrics()
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	streamTicks.WithLabelValues(streamType, outcome).Inc()
}
