package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// MetricValue returns the value of the series of name whose labels include
// labels, read from the default registry. The second result reports whether
// such a series exists.
func MetricValue(t *testing.T, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), true
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), true
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	have := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		have[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// AssertMetricIncreased asserts that a series grew by at least delta since before.
func AssertMetricIncreased(t *testing.T, name string, labels map[string]string, before, delta float64) {
	t.Helper()
	after, ok := MetricValue(t, name, labels)
	if !ok {
		t.Fatalf("metric %s%v not found", name, labels)
	}
	if after-before < delta {
		t.Errorf("metric %s%v grew by %v, want at least %v", name, labels, after-before, delta)
	}
}
