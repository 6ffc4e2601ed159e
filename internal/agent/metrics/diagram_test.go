package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent/metrics"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

func newDiagramExtractor() *metrics.DiagramExtractor {
	return metrics.NewDiagramExtractor(metrics.DefaultWorkdayHours, logger.NewNop())
}

func TestDiagramExtractor_StepLabelsWithDurations(t *testing.T) {
	got := newDiagramExtractor().Extract("graph TD\nA[Step 1: Review (30 min)] --> B[Step 2: Approve (1 hour)]")

	assert.Equal(t, 2, got.TotalSteps)
	assert.Equal(t, "1 hour 30 minutes", got.TotalTime)
	assert.Equal(t, []string{"30 min", "1 hour"}, got.TimeEstimates)
	assert.Equal(t, []models.StepTime{
		{Step: "1", StepName: "Step 1: Review", Time: "30 min"},
		{Step: "2", StepName: "Step 2: Approve", Time: "1 hour"},
	}, got.StepTimes)
}

func TestDiagramExtractor_FallsBackToBoxes(t *testing.T) {
	diagram := `graph TD
    S([Start]) --> A[Receive request (15 min)]
    A --> B{Complete?}
    B -->|Yes| C[Send confirmation]
    B -->|No| A
    C --> E[End]`

	got := newDiagramExtractor().Extract(diagram)

	assert.Equal(t, 2, got.TotalSteps)
	assert.Equal(t, "15 minutes", got.TotalTime)
	require.Len(t, got.StepTimes, 2)
	assert.Equal(t, models.StepTime{Step: "1", StepName: "Receive request", Time: "15 min"}, got.StepTimes[0])
	assert.Equal(t, models.StepTime{Step: "2", StepName: "Send confirmation", Time: models.TimeUnknown}, got.StepTimes[1])
}

func TestDiagramExtractor_DedupesRepeatedNodes(t *testing.T) {
	diagram := "graph LR\nA[Step 1: Draft] --> B[Step 2: Review]\nB[Step 2: Review] --> A[Step 1: Draft]"

	got := newDiagramExtractor().Extract(diagram)

	assert.Equal(t, 2, got.TotalSteps)
	assert.Equal(t, models.TimeUnknown, got.TotalTime)
}

func TestDiagramExtractor_IgnoresSubgraphTitles(t *testing.T) {
	diagram := `flowchart TD
subgraph "Process 9"
  A["Step 1: Collect (2 days)"] --> B["Step 2: File (4 hours)"]
end`

	got := newDiagramExtractor().Extract(diagram)

	assert.Equal(t, 2, got.TotalSteps)
	assert.Equal(t, "20 hours", got.TotalTime)
}

func TestDiagramExtractor_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "no boxes at all"} {
		got := newDiagramExtractor().Extract(in)
		assert.Equal(t, 0, got.TotalSteps)
		assert.Equal(t, models.TimeUnknown, got.TotalTime)
		assert.Empty(t, got.StepTimes)
		assert.NotNil(t, got.StepTimes)
	}
}

func TestDiagramExtractor_NodeIDsAreNotDurations(t *testing.T) {
	got := newDiagramExtractor().Extract("graph TD\nS1D[Intake] --> S2D[Review]\nS2D --> P2H[Approve]")

	assert.Equal(t, 3, got.TotalSteps)
	assert.Equal(t, models.TimeUnknown, got.TotalTime)
	assert.Empty(t, got.TimeEstimates)
	for _, s := range got.StepTimes {
		assert.Equal(t, models.TimeUnknown, s.Time)
	}
}
