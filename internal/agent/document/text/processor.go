package text

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ErrEmpty is returned for payloads with no readable content.
var ErrEmpty = errors.New("file is empty")

// Decode turns raw bytes into a string. UTF-8 and UTF-16 with a BOM are honoured,
// plain UTF-8 is passed through, anything else is read as Windows-1252.
func Decode(data []byte) (string, error) {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", fmt.Errorf("decode text: %w", err)
		}
		return string(out), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}

// Processor handles plain text and anything no other extractor claims.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{logger: logger}
}

func (p *Processor) CanProcess(mediaType string) bool {
	return strings.HasPrefix(mediaType, "text/")
}

func (p *Processor) Type() models.DocumentType {
	return models.TypeText
}

func (p *Processor) Extract(data []byte, fileName string) (*models.DocumentRecord, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	s, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s = document.CollapseBlankLines(document.NormalizeNewlines(s))
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmpty
	}
	return &models.DocumentRecord{
		FileName: fileName,
		Type:     models.TypeText,
		Content:  models.TextContent(s),
	}, nil
}
