package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestObserveSNRMeanMatchesSimpleAverage(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveSNR(10)
	r.ObserveSNR(20)
	r.ObserveSNR(30)

	got := testGaugeValue(t, r.DemodSNRMean)
	assert.InDelta(t, 20.0, got, 1e-9)
}

func TestObserveSNRWindowWraps(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	for i := 0; i < snrWindowSize; i++ {
		r.ObserveSNR(0)
	}
	// Window is now full of zeros; push one very different value in and
	// the mean must shift by exactly 1/snrWindowSize of the delta.
	r.ObserveSNR(float64(snrWindowSize))

	got := testGaugeValue(t, r.DemodSNRMean)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func testGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	assert.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
