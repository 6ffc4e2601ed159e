package delimited

import (
	"errors"
	"strings"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/agent/document/text"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

var errNoHeader = errors.New("no header row found")

// Processor parses comma, tab or semicolon separated text into rows.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{logger: logger}
}

func (p *Processor) CanProcess(mediaType string) bool {
	return mediaType == document.MediaCSV || mediaType == document.MediaTSV || mediaType == "application/csv"
}

func (p *Processor) Type() models.DocumentType {
	return models.TypeCSV
}

func (p *Processor) Extract(data []byte, fileName string) (*models.DocumentRecord, error) {
	if len(data) == 0 {
		return nil, text.ErrEmpty
	}
	s, err := text.Decode(data)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(s, DetectLineEnding(s))
	start := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, errNoHeader
	}

	delim := DetectDelimiter(lines[start])
	headers := document.UniqueHeaders(ParseLine(lines[start], delim))

	rows := make([]models.Row, 0, len(lines)-start-1)
	for _, l := range lines[start+1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		fields := ParseLine(l, delim)
		row := make(models.Row, len(headers))
		for i, h := range headers {
			if i < len(fields) {
				row[h] = fields[i]
			} else {
				row[h] = ""
			}
		}
		if len(fields) > len(headers) {
			p.logger.Debug("Row has more fields than headers",
				logger.String("fileName", fileName),
				logger.Int("fields", len(fields)),
				logger.Int("headers", len(headers)),
			)
		}
		rows = append(rows, row)
	}

	return &models.DocumentRecord{
		FileName: fileName,
		Type:     models.TypeCSV,
		Headers:  headers,
		Content:  models.TabularContent(rows),
	}, nil
}

// DetectLineEnding returns the line terminator used by s.
func DetectLineEnding(s string) string {
	switch {
	case strings.Contains(s, "\r\n"):
		return "\r\n"
	case strings.Contains(s, "\n"):
		return "\n"
	case strings.Contains(s, "\r"):
		return "\r"
	}
	return "\n"
}

// DetectDelimiter picks tab, then semicolon, else comma, by whichever splits
// the header line into more than one field.
func DetectDelimiter(header string) rune {
	for _, d := range []rune{'\t', ';'} {
		if len(ParseLine(header, d)) > 1 {
			return d
		}
	}
	return ','
}

// ParseLine splits one line on delim. Double quotes toggle a quoted section in
// which the delimiter is literal; a doubled quote inside quotes is a literal quote.
// Fields are trimmed.
func ParseLine(line string, delim rune) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(cur.String()))
}
