package agent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent"
	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

func TestFormatParser_MalformedInputNeverRaises(t *testing.T) {
	parser := agent.NewFormatParser(logger.NewNop())

	cases := []struct {
		mediaType string
		fileName  string
		data      []byte
	}{
		{document.MediaPDF, "broken.pdf", []byte("%PDF-1.7 garbage")},
		{document.MediaPDF, "empty.pdf", nil},
		{document.MediaDocx, "broken.docx", []byte("PK\x03\x04 not a zip")},
		{document.MediaDoc, "legacy.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 1, 2}},
		{document.MediaCSV, "empty.csv", []byte("\n\n")},
		{document.MediaXLSX, "broken.xlsx", []byte{0x00, 0x01, 0x02}},
		{document.MediaXLS, "legacy.xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
		{document.MediaText, "empty.txt", []byte{}},
	}

	for _, tc := range cases {
		t.Run(tc.fileName, func(t *testing.T) {
			var rec *models.DocumentRecord
			require.NotPanics(t, func() {
				rec = parser.Parse(tc.data, tc.mediaType, tc.fileName)
			})
			require.NotNil(t, rec)
			assert.False(t, rec.Parsed)
			assert.NotEmpty(t, rec.Error)
			assert.Equal(t, models.TypeError, rec.Type)
			assert.True(t, strings.HasPrefix(rec.Content.Text, "Error parsing "+tc.fileName+": "))
			assert.Equal(t, []string{tc.fileName}, rec.FileNames)
		})
	}
}

func TestFormatParser_InfersTypeFromExtension(t *testing.T) {
	parser := agent.NewFormatParser(logger.NewNop())

	rec := parser.Parse([]byte("Name,Role\nAlice,Approver\n"), "application/octet-stream", "team.csv")

	require.True(t, rec.Parsed)
	assert.Equal(t, models.TypeCSV, rec.Type)
	assert.Equal(t, []string{"Name", "Role"}, rec.Headers)
	assert.Equal(t, []string{"team.csv"}, rec.FileNames)
}

func TestFormatParser_UnknownTypeFallsBackToText(t *testing.T) {
	parser := agent.NewFormatParser(logger.NewNop())

	rec := parser.Parse([]byte("hello"), "", "README")

	require.True(t, rec.Parsed)
	assert.Equal(t, models.TypeText, rec.Type)
	assert.Equal(t, "hello", rec.Content.Text)
}

func TestFormatParser_LogsFailures(t *testing.T) {
	tl := logger.NewTestLogger()
	parser := agent.NewFormatParser(tl)

	parser.Parse(nil, "text/plain; charset=utf-8", "empty.txt")

	assert.Equal(t, 1, tl.CountLevel("WARN"))
}

func TestResolveMediaType(t *testing.T) {
	assert.Equal(t, document.MediaPDF, agent.ResolveMediaType("", "A.PDF"))
	assert.Equal(t, document.MediaText, agent.ResolveMediaType("Text/Plain; charset=utf-8", "a.csv"))
	assert.Equal(t, document.MediaOctet, agent.ResolveMediaType(document.MediaOctet, "noext"))
}
