package word_test

import (
	"bytes"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent/document/word"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

func TestProcessor_Extract(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("Invoice Approval Procedure")
	w.AddParagraph().AddText("Step 1: Review the invoice")
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)

	rec, err := word.NewProcessor(logger.NewNop()).Extract(buf.Bytes(), "procedure.docx")

	require.NoError(t, err)
	assert.Equal(t, models.TypeDocx, rec.Type)
	assert.Contains(t, rec.Content.Text, "Invoice Approval Procedure")
	assert.Contains(t, rec.Content.Text, "Step 1: Review the invoice")
}

func TestProcessor_Extract_Legacy(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)

	_, err := word.NewProcessor(logger.NewNop()).Extract(data, "old.doc")

	assert.ErrorIs(t, err, word.ErrLegacyFormat)
}

func TestProcessor_Extract_Corrupt(t *testing.T) {
	_, err := word.NewProcessor(logger.NewNop()).Extract([]byte("PK\x03\x04garbage"), "broken.docx")

	assert.Error(t, err)
}
