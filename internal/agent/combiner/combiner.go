package combiner

import (
	"fmt"
	"strings"

	"github.com/ymu4/document-processor/internal/models"
)

const (
	// SourceFileColumn records which file a combined row came from.
	SourceFileColumn = "Source File"

	CombinedFileName = "combined_documents"
	rowDelimiter     = ","
)

// Combine merges parsed records into one record for analysis.
// Unparsed inputs are ignored. A single parsed input is returned as is.
func Combine(recs []*models.DocumentRecord) *models.DocumentRecord {
	var valid []*models.DocumentRecord
	for _, r := range recs {
		if r != nil && r.Parsed {
			valid = append(valid, r)
		}
	}

	switch {
	case len(valid) == 0:
		return placeholder()
	case len(valid) == 1:
		return valid[0]
	case sameTabularType(valid):
		return combineTabular(valid)
	case allTextLike(valid):
		return combineText(valid, false)
	default:
		return combineText(valid, true)
	}
}

func placeholder() *models.DocumentRecord {
	return &models.DocumentRecord{
		FileName: CombinedFileName,
		Type:     models.TypeError,
		Content:  models.TextContent("No valid documents to combine"),
		Parsed:   false,
		Error:    "no documents were parsed successfully",
	}
}

func sameTabularType(recs []*models.DocumentRecord) bool {
	t := recs[0].Type
	if !t.IsTabular() {
		return false
	}
	for _, r := range recs {
		if r.Type != t || !r.Content.IsTabular() {
			return false
		}
	}
	return true
}

func allTextLike(recs []*models.DocumentRecord) bool {
	for _, r := range recs {
		if !r.Type.IsTextLike() || r.Content.IsTabular() {
			return false
		}
	}
	return true
}

func combineTabular(recs []*models.DocumentRecord) *models.DocumentRecord {
	var headers []string
	seen := map[string]bool{}
	for _, r := range recs {
		for _, h := range r.Headers {
			if !seen[h] {
				seen[h] = true
				headers = append(headers, h)
			}
		}
	}
	if !seen[SourceFileColumn] {
		headers = append(headers, SourceFileColumn)
	}

	var rows []models.Row
	for _, r := range recs {
		for _, src := range r.Content.Rows {
			row := make(models.Row, len(headers))
			for _, h := range headers {
				row[h] = src[h]
			}
			row[SourceFileColumn] = r.FileName
			rows = append(rows, row)
		}
	}

	return &models.DocumentRecord{
		FileName:  CombinedFileName,
		FileNames: fileNames(recs),
		Type:      recs[0].Type,
		Content:   models.TabularContent(rows),
		Headers:   headers,
		Parsed:    true,
		Messages:  messages(recs),
	}
}

func combineText(recs []*models.DocumentRecord, degrade bool) *models.DocumentRecord {
	var (
		b        strings.Builder
		keywords []string
		seen     = map[string]bool{}
		diagram  bool
	)
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "===== DOCUMENT: %s =====\n\n", r.FileName)
		if degrade {
			b.WriteString(r.PlainText(rowDelimiter))
		} else {
			b.WriteString(r.Content.Text)
		}

		for _, k := range r.Keywords() {
			if key := strings.ToLower(k); !seen[key] {
				seen[key] = true
				keywords = append(keywords, k)
			}
		}
		if r.StructuredData != nil && r.StructuredData.DiagramDetected {
			diagram = true
		}
	}

	out := &models.DocumentRecord{
		FileName:  CombinedFileName,
		FileNames: fileNames(recs),
		Type:      models.TypeText,
		Content:   models.TextContent(b.String()),
		Parsed:    true,
		Messages:  messages(recs),
	}
	if len(keywords) > 0 || diagram {
		out.StructuredData = &models.StructuredData{Keywords: keywords, DiagramDetected: diagram}
	}
	return out
}

func fileNames(recs []*models.DocumentRecord) []string {
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.FileName)
	}
	return names
}

func messages(recs []*models.DocumentRecord) []string {
	var out []string
	for _, r := range recs {
		for _, m := range r.Messages {
			out = append(out, r.FileName+": "+m)
		}
	}
	return out
}
