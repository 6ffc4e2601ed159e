package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/internal/agent/document/text"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

func TestProcessor_Extract_NormalizesLineEndings(t *testing.T) {
	p := text.NewProcessor(logger.NewNop())

	rec, err := p.Extract([]byte("Title\r\nStep one\r\n\r\n\r\n\r\nStep two\rEnd"), "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, models.TypeText, rec.Type)
	assert.Equal(t, "Title\nStep one\n\nStep two\nEnd", rec.Content.Text)
}

func TestProcessor_Extract_Empty(t *testing.T) {
	p := text.NewProcessor(logger.NewNop())

	_, err := p.Extract(nil, "empty.txt")
	assert.ErrorIs(t, err, text.ErrEmpty)

	_, err = p.Extract([]byte("  \n\n "), "blank.txt")
	assert.ErrorIs(t, err, text.ErrEmpty)
}

func TestDecode(t *testing.T) {
	s, err := text.Decode([]byte("caf\xe9"))
	require.NoError(t, err)
	assert.Equal(t, "café", s)

	s, err = text.Decode([]byte("\xef\xbb\xbfhello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = text.Decode([]byte{0xFF, 0xFE, 'h', 0, 'i', 0})
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
}
