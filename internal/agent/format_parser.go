package agent

import (
	"fmt"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/agent/document/delimited"
	"github.com/ymu4/document-processor/internal/agent/document/pdf"
	"github.com/ymu4/document-processor/internal/agent/document/spreadsheet"
	"github.com/ymu4/document-processor/internal/agent/document/text"
	"github.com/ymu4/document-processor/internal/agent/document/word"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

// FormatParser dispatches raw bytes to the extractor for their media type.
// Parse never returns an error: failures are captured into the record.
type FormatParser struct {
	extractors []document.Extractor
	fallback   document.Extractor
	logger     logger.Logger
}

// NewFormatParser registers extractors in dispatch order: PDF, Word,
// delimited text, spreadsheet, with plain text as the default.
func NewFormatParser(log logger.Logger) *FormatParser {
	return &FormatParser{
		extractors: []document.Extractor{
			pdf.NewProcessor(log),
			word.NewProcessor(log),
			delimited.NewProcessor(log),
			spreadsheet.NewProcessor(log),
		},
		fallback: text.NewProcessor(log),
		logger:   log,
	}
}

// ResolveMediaType returns the declared media type, or one inferred from the
// file extension when the declaration is missing or generic.
func ResolveMediaType(mediaType, fileName string) string {
	mt := document.NormalizeMediaType(mediaType)
	if mt == "" || mt == document.MediaOctet {
		if inferred := document.MediaTypeFromName(fileName); inferred != "" {
			return inferred
		}
	}
	return mt
}

// GetExtractor returns the extractor responsible for mediaType.
func (f *FormatParser) GetExtractor(mediaType string) document.Extractor {
	for _, e := range f.extractors {
		if e.CanProcess(mediaType) {
			return e
		}
	}
	return f.fallback
}

// Parse turns one file into a record.
func (f *FormatParser) Parse(data []byte, mediaType, fileName string) (rec *models.DocumentRecord) {
	mt := ResolveMediaType(mediaType, fileName)
	ext := f.GetExtractor(mt)

	defer func() {
		if r := recover(); r != nil {
			err := &models.FormatParseError{FileName: fileName, Format: ext.Type(), Err: fmt.Errorf("panic: %v", r)}
			f.logger.Error("Extractor panicked", logger.String("fileName", fileName), logger.Error(err))
			rec = FailureRecord(fileName, err)
		}
	}()

	out, err := ext.Extract(data, fileName)
	if err != nil {
		perr := &models.FormatParseError{FileName: fileName, Format: ext.Type(), Err: err}
		f.logger.Warn("Failed to parse file",
			logger.String("fileName", fileName),
			logger.String("mediaType", mt),
			logger.Error(perr),
		)
		return FailureRecord(fileName, perr)
	}

	out.FileName = fileName
	out.FileNames = []string{fileName}
	out.Parsed = true
	out.Error = ""
	f.logger.Debug("Parsed file",
		logger.String("fileName", fileName),
		logger.String("mediaType", mt),
		logger.String("type", string(out.Type)),
	)
	return out
}

// FailureRecord builds the unparsed record for a file that could not be read.
// Its content always carries a readable diagnostic.
func FailureRecord(fileName string, err error) *models.DocumentRecord {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return &models.DocumentRecord{
		FileName:  fileName,
		FileNames: []string{fileName},
		Type:      models.TypeError,
		Content:   models.TextContent(fmt.Sprintf("Error parsing %s: %s", fileName, reason)),
		Parsed:    false,
		Error:     reason,
	}
}
