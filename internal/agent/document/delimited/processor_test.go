package delimited_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent/document/delimited"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

func TestParseLine_QuotedDelimiter(t *testing.T) {
	assert.Equal(t, []string{"a,b", "c"}, delimited.ParseLine(`"a,b",c`, ','))
}

func TestParseLine_EscapedQuote(t *testing.T) {
	assert.Equal(t, []string{`say "hi"`, "x"}, delimited.ParseLine(`"say ""hi""",x`, ','))
}

func TestParseLine_TrailingEmptyField(t *testing.T) {
	assert.Equal(t, []string{"a", ""}, delimited.ParseLine("a,", ','))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, '\t', delimited.DetectDelimiter("a\tb;c"))
	assert.Equal(t, ';', delimited.DetectDelimiter("a;b,c"))
	assert.Equal(t, ',', delimited.DetectDelimiter("a,b"))
	assert.Equal(t, ',', delimited.DetectDelimiter("single"))
}

func TestDetectLineEnding(t *testing.T) {
	assert.Equal(t, "\r\n", delimited.DetectLineEnding("a\r\nb"))
	assert.Equal(t, "\r", delimited.DetectLineEnding("a\rb"))
	assert.Equal(t, "\n", delimited.DetectLineEnding("a\nb"))
}

func TestProcessor_Extract(t *testing.T) {
	p := delimited.NewProcessor(logger.NewNop())
	data := []byte("\"Step\" ; Owner ;Time\r\n1;Alice;30 min\r\n\r\n2;\"Bob; Jr\"\r\n")

	rec, err := p.Extract(data, "steps.csv")

	require.NoError(t, err)
	assert.Equal(t, models.TypeCSV, rec.Type)
	assert.Equal(t, []string{"Step", "Owner", "Time"}, rec.Headers)
	require.True(t, rec.Content.IsTabular())
	require.Len(t, rec.Content.Rows, 2)
	assert.Equal(t, models.Row{"Step": "1", "Owner": "Alice", "Time": "30 min"}, rec.Content.Rows[0])
	assert.Equal(t, models.Row{"Step": "2", "Owner": "Bob; Jr", "Time": ""}, rec.Content.Rows[1])
}

func TestProcessor_Extract_DuplicateHeaders(t *testing.T) {
	p := delimited.NewProcessor(logger.NewNop())

	rec, err := p.Extract([]byte("A,A,\n1,2,3\n"), "dup.csv")

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A_2", "Column 3"}, rec.Headers)
}

func TestProcessor_Extract_Empty(t *testing.T) {
	p := delimited.NewProcessor(logger.NewNop())

	_, err := p.Extract([]byte{}, "empty.csv")
	assert.Error(t, err)

	_, err = p.Extract([]byte("\n\n"), "blank.csv")
	assert.Error(t, err)
}
