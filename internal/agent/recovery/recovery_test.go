package recovery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent/recovery"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

func TestRecover_FencedBlock(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\n  \"summary\": \"Fewer hand-offs\",\n  \"totalSteps\": 4,\n  \"totalTime\": \"2 hours\",\n  \"suggestions\": [\n    {\"title\": \"Merge approvals\", \"description\": \"One sign-off\", \"timeSaved\": \"30 min\"},\n  ],\n  \"workflow\": \"graph TD\\nA[Step 1] --> B[Step 2]\",\n}\n```\nThanks!"

	got := recovery.Recover(raw)

	assert.Equal(t, "Fewer hand-offs", got.Summary)
	require.NotNil(t, got.TotalSteps)
	assert.Equal(t, 4, *got.TotalSteps)
	assert.Equal(t, "2 hours", got.TotalTime)
	assert.Equal(t, []models.Suggestion{{Title: "Merge approvals", Description: "One sign-off", TimeSaved: "30 min"}}, got.Suggestions)
	assert.Equal(t, "graph TD\nA[Step 1] --> B[Step 2]", got.Workflow)
}

func TestRecover_RawJSON(t *testing.T) {
	raw := `  {"summary": "ok", "optimizedMetrics": {"totalSteps": "3", "totalTime": "45 minutes",
	 "stepTimes": [{"step": 1, "stepName": "Intake", "time": "15 min"}]},
	 "workflowDiagram": {"diagram": "graph LR\nA-->B", "type": "flow"}} `

	got := recovery.Recover(raw)

	assert.Equal(t, "ok", got.Summary)
	require.NotNil(t, got.TotalSteps)
	assert.Equal(t, 3, *got.TotalSteps)
	assert.Equal(t, "45 minutes", got.TotalTime)
	assert.Equal(t, []models.StepTime{{Step: "1", StepName: "Intake", Time: "15 min"}}, got.StepTimes)
	assert.Equal(t, "graph LR\nA-->B", got.Workflow)
	assert.Empty(t, got.Suggestions)
	assert.NotEmpty(t, recovery.WithDefaults(got).Suggestions)
}

func TestRecover_ProseWithTotalStepsAndArray(t *testing.T) {
	raw := "The optimized process has fewer steps.\nTotal Steps: 7\nSuggestions: [{\"title\": \"Merge approvals\", \"description\": \"Combine manager and finance sign-off\"}]"

	got := recovery.Recover(raw)

	require.NotNil(t, got.TotalSteps)
	assert.Equal(t, 7, *got.TotalSteps)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "Merge approvals", got.Suggestions[0].Title)
	assert.NotEmpty(t, recovery.WithDefaults(got).Suggestions)
}

func TestRecover_Gibberish(t *testing.T) {
	got := recovery.Recover("asdf qwer !!! ### ???")

	assert.Nil(t, got.TotalSteps)
	assert.Empty(t, got.Suggestions)

	filled := recovery.WithDefaults(got)
	assert.Len(t, filled.Suggestions, 2)
	assert.NotEmpty(t, filled.Summary)
}

func TestRecover_FieldLevelRepairs(t *testing.T) {
	raw := "**Summary:** Streamlined intake\n" +
		"Total time: 1 hour 15 minutes\n" +
		"suggestions: [{‘title’: ‘Automate’, 'description': 'Use a form bot',},]\n\n" +
		"graph TD\n  A[Step 1: Intake (15 min)] --> B[Step 2: Review (1 hour)]\n```"

	got := recovery.Recover(raw)

	assert.Equal(t, "Streamlined intake", got.Summary)
	assert.Equal(t, "1 hour 15 minutes", got.TotalTime)
	assert.Equal(t, []models.Suggestion{{Title: "Automate", Description: "Use a form bot"}}, got.Suggestions)
	assert.Equal(t, "graph TD\n  A[Step 1: Intake (15 min)] --> B[Step 2: Review (1 hour)]", got.Workflow)
}

func TestRecover_UnreadableSuggestionsBecomeGeneric(t *testing.T) {
	got := recovery.Recover("Suggestions: [this is {not json]")

	require.Len(t, got.Suggestions, 1)
	assert.NotEmpty(t, got.Suggestions[0].Title)
}

func TestRecover_IgnoresUnrelatedObjectInProse(t *testing.T) {
	got := recovery.Recover(`Total Steps: 2 and an example {"foo": "bar"}`)

	require.NotNil(t, got.TotalSteps)
	assert.Equal(t, 2, *got.TotalSteps)
}

func TestDefault(t *testing.T) {
	d := recovery.Default()

	assert.NotEmpty(t, d.Summary)
	assert.Len(t, d.Suggestions, 2)
	assert.Empty(t, d.TotalTime)
	assert.NotNil(t, d.StepTimes)
}

func TestParser_LogsTier(t *testing.T) {
	tl := logger.NewTestLogger()

	recovery.NewParser(tl).Recover(`{"summary": "x"}`)

	entries := tl.GetEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Recovered result from raw JSON", entries[0].Message)
}

func TestRecover_SuggestionsLabelAfterArray(t *testing.T) {
	raw := "Ideas:\n[{\"title\": \"Auto-route\", \"description\": \"Send requests to reviewers.\"}]\nThese suggestions should cut the total time."

	got := recovery.Recover(raw)

	assert.Equal(t, []models.Suggestion{{Title: "Auto-route", Description: "Send requests to reviewers."}}, got.Suggestions)
}
