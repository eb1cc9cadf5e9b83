package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goto-opensource/asyncly-sub000"
	"github.com/goto-opensource/asyncly-sub000/executor"
	"github.com/goto-opensource/asyncly-sub000/executor/metrics"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			switch {
			case m.Counter != nil:
				total += m.Counter.GetValue()
			case m.Gauge != nil:
				total += m.Gauge.GetValue()
			}
		}
	}
	return total
}

func histogramSampleCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total uint64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if h := m.Histogram; h != nil {
				total += h.GetSampleCount()
			}
		}
	}
	return total
}

func TestWrapRecordsProcessedAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	tp := executor.NewThreadPool(1)
	defer tp.Finish()

	wrapped := metrics.Wrap(tp, reg, "pool")

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, wrapped.Post(asyncly.NewTask(func() { wg.Done() })))
	wg.Wait()

	assert.Eventually(t, func() bool {
		return counterValue(t, reg, "processed_tasks_total") == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "task_execution_duration_ns"))
}

func TestWrapSharesVectorsAcrossSameRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	tp1 := executor.NewThreadPool(1)
	defer tp1.Finish()
	tp2 := executor.NewThreadPool(1)
	defer tp2.Finish()

	w1 := metrics.Wrap(tp1, reg, "pool-a")
	w2 := metrics.Wrap(tp2, reg, "pool-b")

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, w1.Post(asyncly.NewTask(wg.Done)))
	require.NoError(t, w2.Post(asyncly.NewTask(wg.Done)))
	wg.Wait()

	assert.Eventually(t, func() bool {
		return counterValue(t, reg, "processed_tasks_total") == 2
	}, time.Second, time.Millisecond)
}

func TestWrapTracksTimedPosts(t *testing.T) {
	reg := prometheus.NewRegistry()
	tp := executor.NewThreadPool(1)
	defer tp.Finish()
	wrapped := metrics.Wrap(tp, reg, "timed-pool")

	var wg sync.WaitGroup
	wg.Add(1)
	_, err := wrapped.PostAfter(5*time.Millisecond, asyncly.NewTask(wg.Done))
	require.NoError(t, err)
	wg.Wait()

	assert.Eventually(t, func() bool {
		return counterValue(t, reg, "processed_tasks_total") == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "task_queueing_delay_ns"))
}
