package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterLabelOrderIsStable(t *testing.T) {
	c := NewCollector()
	c.IncrementCounter("ops", map[string]string{"a": "1", "b": "2"})
	c.IncrementCounter("ops", map[string]string{"b": "2", "a": "1"})

	assert.Equal(t, int64(2), c.Counter("ops", map[string]string{"a": "1", "b": "2"}))
}

func TestConcurrentIncrements(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordOperation("mint")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Counter(MetricOperationCount, map[string]string{"op": "mint"}))
}

func TestHistogramSummary(t *testing.T) {
	c := NewCollector()
	c.RecordMinted(10)
	c.RecordMinted(30)
	c.RecordVerify(2 * time.Second)

	summary := c.Summary()
	hist := summary["histograms"].(map[string]map[string]float64)
	minted := hist[MetricSharesMinted]
	require.NotNil(t, minted)
	assert.Equal(t, 2.0, minted["count"])
	assert.Equal(t, 10.0, minted["min"])
	assert.Equal(t, 30.0, minted["max"])
	assert.Equal(t, 20.0, minted["avg"])
	assert.Equal(t, 2.0, hist[MetricVerifyTime]["max"])
}

func TestHistogramWindow(t *testing.T) {
	c := NewCollector()
	for i := 0; i < histogramWindow+10; i++ {
		c.RecordHistogram("h", float64(i), nil)
	}
	hist := c.Summary()["histograms"].(map[string]map[string]float64)
	assert.Equal(t, float64(histogramWindow), hist["h"]["count"])
	assert.Equal(t, 10.0, hist["h"]["min"])
}

func TestGaugeAndGetMetric(t *testing.T) {
	c := NewCollector()
	c.RecordTotalShares("v1", 1500)
	c.RecordTotalShares("v1", 1200)

	m := c.GetMetric(MetricTotalShares, map[string]string{"vault": "v1"})
	require.NotNil(t, m)
	assert.Equal(t, Gauge, m.Type)
	assert.Equal(t, 1200.0, m.Value)
	assert.Nil(t, c.GetMetric(MetricTotalShares, map[string]string{"vault": "v2"}))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordOperation("burn")
	c.RecordError("burn", "overflow")
	assert.Zero(t, c.Counter(MetricOperationCount, nil))
	assert.Nil(t, c.Summary())
}
