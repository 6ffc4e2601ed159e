package word

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/agent/document/text"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrLegacyFormat is returned for binary Word 97-2003 documents.
var ErrLegacyFormat = errors.New("legacy binary .doc files are not supported, save as .docx")

// Processor extracts raw text from .docx documents.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{logger: logger}
}

func (p *Processor) CanProcess(mediaType string) bool {
	return mediaType == document.MediaDocx || mediaType == document.MediaDoc
}

func (p *Processor) Type() models.DocumentType {
	return models.TypeDocx
}

func (p *Processor) Extract(data []byte, fileName string) (rec *models.DocumentRecord, err error) {
	if len(data) == 0 {
		return nil, text.ErrEmpty
	}
	if bytes.HasPrefix(data, oleMagic) {
		return nil, ErrLegacyFormat
	}

	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("docx reader panic: %v", r)
		}
	}()

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	var (
		parts    []string
		messages []string
	)
	for i, it := range doc.Document.Body.Items {
		switch v := it.(type) {
		case *docx.Paragraph, *docx.Table:
			parts = append(parts, strings.TrimRight(fmt.Sprint(v), " \t"))
		default:
			messages = append(messages, fmt.Sprintf("unsupported element %T at position %d was skipped", it, i))
		}
	}

	out := document.CollapseBlankLines(document.NormalizeNewlines(strings.Join(parts, "\n")))
	if strings.TrimSpace(out) == "" {
		return nil, errors.New("document contains no text")
	}
	if len(messages) > 0 {
		p.logger.Debug("Word extraction messages",
			logger.String("fileName", fileName),
			logger.Strings("messages", messages),
		)
	}

	return &models.DocumentRecord{
		FileName: fileName,
		Type:     models.TypeDocx,
		Content:  models.TextContent(strings.TrimSpace(out)),
		Messages: messages,
	}, nil
}
