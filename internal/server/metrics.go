// Package server counts hub activity with go-metrics and reports it
// periodically as JSON on the configured writer.
package server

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Metric names tracked by the hub.
const (
	metricConnections = "connections"
	metricMessagesIn  = "messages.in"
	metricBroadcasts  = "broadcasts"
	metricDrops       = "drops"
)

// Metrics wraps a private go-metrics registry so counters are owned by the
// server instance rather than the process.
type Metrics struct {
	reg  gometrics.Registry
	out  io.Writer
	tick time.Duration
}

// NewMetrics creates a metrics registry that reports to out every tick.
func NewMetrics(out io.Writer, tick time.Duration) *Metrics {
	return &Metrics{
		reg:  gometrics.NewRegistry(),
		out:  out,
		tick: tick,
	}
}

// Start launches the periodic JSON reporter.
func (m *Metrics) Start() {
	go gometrics.WriteJSON(m.reg, m.tick, m.out)
}

// WriteOnce emits a final report, used on shutdown.
func (m *Metrics) WriteOnce() {
	gometrics.WriteJSONOnce(m.reg, m.out)
}

// Incr adds i to the named counter.
func (m *Metrics) Incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

// Decr subtracts i from the named counter.
func (m *Metrics) Decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}

// Count returns the current value of the named counter.
func (m *Metrics) Count(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, m.reg).Count()
}
