package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/models"
)

func TestContent_MarshalJSON(t *testing.T) {
	text, err := json.Marshal(models.TextContent("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(text))

	rows, err := json.Marshal(models.TabularContent([]models.Row{{"A": "1"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"A":"1"}]`, string(rows))

	empty, err := json.Marshal(models.TabularContent(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestContent_UnmarshalJSON(t *testing.T) {
	var rec models.DocumentRecord
	require.NoError(t, json.Unmarshal([]byte(`{"type":"csv","content":[{"A":"1","B":"2"}],"headers":["A","B"],"parsed":true}`), &rec))
	assert.True(t, rec.Content.IsTabular())
	assert.Equal(t, []models.Row{{"A": "1", "B": "2"}}, rec.Content.Rows)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","content":"plain","parsed":true}`), &rec))
	assert.False(t, rec.Content.IsTabular())
	assert.Equal(t, "plain", rec.Content.Text)

	var c models.Content
	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
}

func TestDocumentRecord_PlainText(t *testing.T) {
	rec := &models.DocumentRecord{
		Type:    models.TypeCSV,
		Headers: []string{"Step", "Note"},
		Content: models.TabularContent([]models.Row{
			{"Step": "Receive", "Note": "a,b"},
			{"Step": "Review"},
		}),
	}

	assert.Equal(t, "Step,Note\nReceive,\"a,b\"\nReview,", rec.PlainText(","))
	assert.Equal(t, "", (*models.DocumentRecord)(nil).PlainText(","))
	assert.Equal(t, "x", (&models.DocumentRecord{Content: models.TextContent("x")}).PlainText(","))
}

func TestJoinDelimited(t *testing.T) {
	assert.Equal(t, `"a,b",c`, models.JoinDelimited([]string{"a,b", "c"}, ","))
	assert.Equal(t, `"say ""hi""";x`, models.JoinDelimited([]string{`say "hi"`, "x"}, ";"))
	assert.Equal(t, "", models.JoinDelimited(nil, ","))
}

func TestDocumentType_Classes(t *testing.T) {
	assert.True(t, models.TypeCSV.IsTabular())
	assert.True(t, models.TypeExcel.IsTabular())
	assert.False(t, models.TypeText.IsTabular())
	assert.True(t, models.TypePDF.IsTextLike())
	assert.True(t, models.TypeDocx.IsTextLike())
	assert.False(t, models.TypeError.IsTextLike())
}

func TestProcessMetrics_HasTime(t *testing.T) {
	assert.True(t, models.ProcessMetrics{TotalTime: "5 minutes"}.HasTime())
	assert.False(t, models.ProcessMetrics{TotalTime: models.TimeUnknown}.HasTime())
	assert.False(t, models.ProcessMetrics{TotalTime: models.TimeNotSpecified}.HasTime())
	assert.False(t, models.ProcessMetrics{}.HasTime())
}

func TestRecoveredResult_Metrics(t *testing.T) {
	n := 3
	m := models.RecoveredResult{TotalSteps: &n, TotalTime: "1 hour"}.Metrics()
	assert.Equal(t, 3, m.TotalSteps)
	assert.Equal(t, "1 hour", m.TotalTime)
	assert.Empty(t, m.StepTimes)

	assert.Equal(t, models.EmptyMetrics(), models.RecoveredResult{}.Metrics())
}

func TestErrors(t *testing.T) {
	cause := errors.New("boom")

	fa := &models.FileAccessError{FileName: "a.pdf", Err: cause}
	assert.Equal(t, "cannot access a.pdf: boom", fa.Error())
	assert.ErrorIs(t, fa, cause)

	fp := &models.FormatParseError{FileName: "a.pdf", Format: models.TypePDF, Err: cause}
	assert.Equal(t, "pdf extraction failed: boom", fp.Error())
	assert.ErrorIs(t, fp, cause)

	all := &models.AllFilesFailedError{Failures: []models.FileStatus{
		{FileName: "a.pdf", Error: "bad"},
		{FileName: "b.txt", Error: "empty"},
	}}
	assert.Equal(t, "no file could be processed: a.pdf: bad; b.txt: empty", all.Error())

	v := &models.ValidationError{Code: models.CodeFileTooLarge, Message: "too big", FileName: "a.pdf"}
	assert.Equal(t, "a.pdf: too big", v.Error())

	gp := &models.GenerationProviderError{Provider: "openai:gpt-4o-mini", Fallback: "claude:sonnet", Err: cause}
	assert.Contains(t, gp.Error(), "fallback claude:sonnet also failed")
	assert.ErrorIs(t, gp, cause)
}
