package document

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ymu4/document-processor/internal/models"
)

// Media types accepted at the ingest boundary.
const (
	MediaPDF      = "application/pdf"
	MediaDoc      = "application/msword"
	MediaDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaText     = "text/plain"
	MediaCSV      = "text/csv"
	MediaXLS      = "application/vnd.ms-excel"
	MediaXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTSV      = "text/tab-separated-values"
	MediaOctet    = "application/octet-stream"
	MediaMarkdown = "text/markdown"
)

var extToMIME = map[string]string{
	".pdf":  MediaPDF,
	".doc":  MediaDoc,
	".docx": MediaDocx,
	".txt":  MediaText,
	".md":   MediaMarkdown,
	".csv":  MediaCSV,
	".tsv":  MediaTSV,
	".xls":  MediaXLS,
	".xlsx": MediaXLSX,
}

// MediaTypeFromName maps a file extension to its media type, or "" when unknown.
func MediaTypeFromName(fileName string) string {
	return extToMIME[strings.ToLower(filepath.Ext(fileName))]
}

// NormalizeMediaType strips parameters and case from a declared media type.
func NormalizeMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Extractor turns raw bytes of one format into a record.
type Extractor interface {
	// CanProcess reports whether this extractor handles mediaType.
	CanProcess(mediaType string) bool

	// Type is the record type this extractor produces.
	Type() models.DocumentType

	// Extract returns a parsed record, or an error describing why the bytes could not be read.
	Extract(data []byte, fileName string) (*models.DocumentRecord, error)
}

var (
	numberedHeaderRe = regexp.MustCompile(`^(\d+(\.\d+)*[.)]?|[IVX]+\.)\s+\S`)
	blankRunRe       = regexp.MustCompile(`\n{3,}`)
)

// NormalizeNewlines converts CRLF and CR line endings to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// CollapseBlankLines reduces any run of blank lines to a single blank line.
func CollapseBlankLines(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}

// IsHeaderLine reports whether a trimmed line looks like a section header:
// numbered, ALL-CAPS, or ending in a colon.
func IsHeaderLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 120 {
		return false
	}
	if numberedHeaderRe.MatchString(line) && len(line) <= 80 {
		return true
	}
	if strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 8 {
		return true
	}
	return IsAllCapsHeader(line)
}

// IsAllCapsHeader reports whether line is an upper-case heading of at least two letters.
func IsAllCapsHeader(line string) bool {
	letters := 0
	for _, r := range line {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			letters++
		}
	}
	return letters >= 3 && len(strings.Fields(line)) <= 10
}

// SplitSections cuts text into sections at header lines. Text before the first
// header becomes a section with an empty heading.
func SplitSections(text string) []models.Section {
	var (
		sections []models.Section
		cur      *models.Section
		body     []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if cur.Heading != "" || cur.Body != "" {
			sections = append(sections, *cur)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if IsHeaderLine(line) {
			flush()
			cur = &models.Section{Heading: strings.TrimSuffix(strings.TrimSpace(line), ":")}
			body = body[:0]
			continue
		}
		if cur == nil {
			cur = &models.Section{}
		}
		body = append(body, line)
	}
	flush()
	return sections
}

var processKeywords = []string{
	"process", "procedure", "workflow", "step", "approval", "review",
	"decision", "role", "responsible", "input", "output", "timeline",
	"deadline", "escalation", "handoff", "sign-off",
}

// ProcessKeywords returns the process vocabulary terms present in text, in vocabulary order.
func ProcessKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range processKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// UniqueHeaders cleans a header row: blank names become "Column N" and repeated
// names get a "_2", "_3" suffix so no column overwrites another in a Row.
func UniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.Trim(strings.TrimSpace(h), `"`)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}
