package server

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(io.Discard, time.Minute)

	m.Incr(metricConnections, 2)
	m.Decr(metricConnections, 1)

	assert.Equal(t, int64(1), m.Count(metricConnections))
	assert.Equal(t, int64(0), m.Count(metricDrops))
}

func TestMetricsWriteOnce(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics(&buf, time.Minute)
	m.Incr(metricMessagesIn, 3)

	m.WriteOnce()

	assert.Contains(t, buf.String(), metricMessagesIn)
}
