package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterIncrement(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("messages_total", nil, "total messages")
	r.IncrementCounter("messages_total", nil, "total messages")
	r.AddToCounter("messages_total", 3, nil, "total messages")

	all := r.GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)
	require.Contains(t, counters, "messages_total")
	assert.Equal(t, float64(5), counters["messages_total"].Value)
}

func TestCounterLabelsProduceDistinctSeries(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("http_requests_total", map[string]string{"method": "GET"}, "")
	r.IncrementCounter("http_requests_total", map[string]string{"method": "POST"}, "")

	counters := r.GetAllMetrics()["counters"].(map[string]*Metric)
	assert.Len(t, counters, 2)
}

func TestMetricKeyIsDeterministic(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}

func TestTimerAggregation(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("op_duration", 10*time.Millisecond, nil, "")
	r.RecordTimer("op_duration", 30*time.Millisecond, nil, "")

	timers := r.GetAllMetrics()["timers"].(map[string]*TimerMetric)
	timer := timers["op_duration"]
	require.NotNil(t, timer)
	assert.Equal(t, int64(2), timer.Count)
	assert.Equal(t, float64(10), timer.Min)
	assert.Equal(t, float64(30), timer.Max)
	assert.Equal(t, float64(20), timer.Average)
}

func TestGauge(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("sessions_active", 4, nil, "")
	r.SetGauge("sessions_active", 2, nil, "")

	gauges := r.GetAllMetrics()["gauges"].(map[string]*Metric)
	assert.Equal(t, float64(2), gauges["sessions_active"].Value)
}
