package metrics_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent/metrics"
	"github.com/ymu4/document-processor/internal/models"
)

func steps(n int) []models.StepTime {
	out := make([]models.StepTime, n)
	for i := range out {
		out[i] = models.StepTime{Step: fmt.Sprint(i + 1), StepName: fmt.Sprintf("Task %d", i+1), Time: "5 min"}
	}
	return out
}

func TestMerger_DiagramWins(t *testing.T) {
	m := metrics.NewMerger(8, 30)
	diagram := models.ProcessMetrics{TotalSteps: 2, TotalTime: "1 hour", StepTimes: steps(2)}
	document := models.ProcessMetrics{TotalSteps: 3, TotalTime: "3 hours", StepTimes: steps(3)}

	got := m.Merge(diagram, document, nil)

	assert.Equal(t, 2, got.Metrics.TotalSteps)
	assert.Equal(t, "1 hour", got.Metrics.TotalTime)
	assert.Len(t, got.Metrics.StepTimes, 2)
	assert.Nil(t, got.Optimized)
	assert.Nil(t, got.TimeSavingsPercent)
}

func TestMerger_FallsBackToDocument(t *testing.T) {
	m := metrics.NewMerger(8, 30)
	diagram := models.EmptyMetrics()
	document := models.ProcessMetrics{TotalSteps: 3, TotalTime: "3 hours", StepTimes: steps(3)}

	got := m.Merge(diagram, document, nil)

	assert.Equal(t, document, got.Metrics)
}

func TestMerger_MixesSources(t *testing.T) {
	m := metrics.NewMerger(8, 30)
	diagram := models.ProcessMetrics{TotalSteps: 4, TotalTime: models.TimeUnknown}
	document := models.ProcessMetrics{TotalSteps: 2, TotalTime: "40 minutes", StepTimes: steps(2)}

	got := m.Merge(diagram, document, nil)

	assert.Equal(t, 4, got.Metrics.TotalSteps)
	assert.Equal(t, "40 minutes", got.Metrics.TotalTime)
	require.Len(t, got.Metrics.StepTimes, 4)
	assert.Equal(t, "Task 2", got.Metrics.StepTimes[1].StepName)
	assert.Equal(t, models.StepTime{Step: "4", StepName: "Step 4", Time: models.TimeNotSpecified}, got.Metrics.StepTimes[3])
}

func TestMerger_LengthAlwaysMatchesTotalSteps(t *testing.T) {
	m := metrics.NewMerger(8, 30)
	for _, n := range []int{0, 1, 5, 50} {
		for _, have := range []int{0, n / 2, n + 3} {
			t.Run(fmt.Sprintf("n=%d/have=%d", n, have), func(t *testing.T) {
				in := models.ProcessMetrics{TotalSteps: n, TotalTime: "1 hour", StepTimes: steps(have)}

				got := m.Merge(in, models.EmptyMetrics(), nil)

				assert.Len(t, got.Metrics.StepTimes, n)
				assert.Equal(t, n, got.Metrics.TotalSteps)
			})
		}
	}
}

func TestMerger_Idempotent(t *testing.T) {
	m := metrics.NewMerger(8, 30)
	in := models.ProcessMetrics{TotalSteps: 5, TotalTime: "2 hours", StepTimes: steps(7)}

	once := m.Merge(in, in, nil).Metrics
	twice := m.Merge(once, once, nil).Metrics

	assert.Equal(t, once, twice)
	assert.Equal(t, once, metrics.Normalize(once))
}

func TestMerger_SavingsPercent(t *testing.T) {
	m := metrics.NewMerger(8, 30)
	orig := models.ProcessMetrics{TotalSteps: 1, TotalTime: "2 hours", StepTimes: steps(1)}

	opt := models.ProcessMetrics{TotalSteps: 3, TotalTime: "1 hour 30 minutes"}
	got := m.Merge(orig, models.EmptyMetrics(), &opt)
	require.NotNil(t, got.TimeSavingsPercent)
	assert.Equal(t, 25, *got.TimeSavingsPercent)
	require.NotNil(t, got.Optimized)
	assert.Len(t, got.Optimized.StepTimes, 3)

	unknown := models.ProcessMetrics{TotalTime: models.TimeUnknown}
	got = m.Merge(orig, models.EmptyMetrics(), &unknown)
	assert.Equal(t, 30, *got.TimeSavingsPercent)

	assert.Equal(t, 30, m.SavingsPercent("0 minutes", "10 minutes"))
	assert.Equal(t, 50, m.SavingsPercent("1 day", "4 hours"))
	assert.Equal(t, 42, metrics.NewMerger(8, 42).SavingsPercent("soon", "later"))
}
