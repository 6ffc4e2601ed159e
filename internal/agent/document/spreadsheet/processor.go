package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/agent/document/text"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Processor reads the first sheet of an .xlsx workbook.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{logger: logger}
}

func (p *Processor) CanProcess(mediaType string) bool {
	return mediaType == document.MediaXLSX || mediaType == document.MediaXLS
}

func (p *Processor) Type() models.DocumentType {
	return models.TypeExcel
}

func (p *Processor) Extract(data []byte, fileName string) (*models.DocumentRecord, error) {
	if len(data) == 0 {
		return nil, text.ErrEmpty
	}
	if bytes.HasPrefix(data, oleMagic) {
		return nil, errors.New("legacy binary .xls workbooks are not supported, save as .xlsx")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			p.logger.Warn("Failed to close workbook", logger.String("fileName", fileName), logger.Error(err))
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	first := -1
	for i, r := range raw {
		if !isEmptyRow(r) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("sheet %q has no rows", sheet)
	}

	headers := document.UniqueHeaders(raw[first])

	rows := make([]models.Row, 0, len(raw)-first-1)
	for _, r := range raw[first+1:] {
		if isEmptyRow(r) {
			continue
		}
		row := make(models.Row, len(headers))
		for i, h := range headers {
			if i < len(r) {
				row[h] = strings.TrimSpace(r[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &models.DocumentRecord{
		FileName: fileName,
		Type:     models.TypeExcel,
		Headers:  headers,
		Content:  models.TabularContent(rows),
	}, nil
}

func isEmptyRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
