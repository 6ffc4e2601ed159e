package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DocumentType is the canonical type of a parsed record.
type DocumentType string

const (
	TypePDF   DocumentType = "pdf"
	TypeDocx  DocumentType = "docx"
	TypeCSV   DocumentType = "csv"
	TypeExcel DocumentType = "excel"
	TypeText  DocumentType = "text"
	TypeError DocumentType = "error"
)

// IsTabular reports whether records of this type carry rows.
func (t DocumentType) IsTabular() bool {
	return t == TypeCSV || t == TypeExcel
}

// IsTextLike reports whether records of this type carry free text.
func (t DocumentType) IsTextLike() bool {
	return t == TypePDF || t == TypeDocx || t == TypeText
}

// ContentKind tags the variant held by Content.
type ContentKind int

const (
	KindText ContentKind = iota
	KindTabular
)

// Row is one tabular row keyed by header.
type Row map[string]string

// Content is either free text or an ordered list of rows.
type Content struct {
	Kind ContentKind
	Text string
	Rows []Row
}

// TextContent wraps s as text content.
func TextContent(s string) Content {
	return Content{Kind: KindText, Text: s}
}

// TabularContent wraps rows as tabular content.
func TabularContent(rows []Row) Content {
	if rows == nil {
		rows = []Row{}
	}
	return Content{Kind: KindTabular, Rows: rows}
}

func (c Content) IsTabular() bool {
	return c.Kind == KindTabular
}

// MarshalJSON emits a string for text content and an array of objects for rows.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Kind == KindTabular {
		rows := c.Rows
		if rows == nil {
			rows = []Row{}
		}
		return json.Marshal(rows)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return err
		}
		*c = TabularContent(rows)
		return nil
	}
	var text *string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return err
	}
	*c = TextContent("")
	if text != nil {
		c.Text = *text
	}
	return nil
}

// Section is a headed block of a text document.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// StructuredData holds what the PDF extractor recovers beyond raw text.
type StructuredData struct {
	Title           string    `json:"title,omitempty"`
	Sections        []Section `json:"sections,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	DiagramDetected bool      `json:"diagramDetected"`
}

// DocumentRecord is the normalized result of parsing one file, or of combining several.
type DocumentRecord struct {
	FileName       string          `json:"fileName"`
	FileNames      []string        `json:"fileNames,omitempty"`
	Type           DocumentType    `json:"type"`
	Content        Content         `json:"content"`
	Headers        []string        `json:"headers,omitempty"`
	StructuredData *StructuredData `json:"structuredData,omitempty"`
	Parsed         bool            `json:"parsed"`
	Error          string          `json:"error,omitempty"`
	Messages       []string        `json:"messages,omitempty"`
	PageCount      int             `json:"pageCount,omitempty"`
}

// Keywords returns the structured keywords, if any.
func (r *DocumentRecord) Keywords() []string {
	if r == nil || r.StructuredData == nil {
		return nil
	}
	return r.StructuredData.Keywords
}

// PlainText renders the record as text, joining rows with the given delimiter.
func (r *DocumentRecord) PlainText(delim string) string {
	if r == nil {
		return ""
	}
	if !r.Content.IsTabular() {
		return r.Content.Text
	}
	var b strings.Builder
	b.WriteString(JoinDelimited(r.Headers, delim))
	for _, row := range r.Content.Rows {
		vals := make([]string, len(r.Headers))
		for i, h := range r.Headers {
			vals[i] = row[h]
		}
		b.WriteString("\n")
		b.WriteString(JoinDelimited(vals, delim))
	}
	return b.String()
}

// JoinDelimited joins values, quoting those containing the delimiter, a quote or a newline.
func JoinDelimited(vals []string, delim string) string {
	out := make([]string, len(vals))
	for i, v := range vals {
		if strings.Contains(v, delim) || strings.ContainsAny(v, "\"\n\r") {
			v = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		out[i] = v
	}
	return strings.Join(out, delim)
}

// Upload is one file of an ingest batch.
type Upload struct {
	FileName  string
	MediaType string
	Data      []byte
	// ReadErr is set when the file could not be read from the request.
	// Such an upload is reported as failed and the rest of the batch continues.
	ReadErr error
}

// FileStatus is the per-file outcome reported by ingest.
type FileStatus struct {
	FileName string       `json:"fileName"`
	Parsed   bool         `json:"parsed"`
	Type     DocumentType `json:"type"`
	Error    string       `json:"error,omitempty"`
}

// IngestResult is what an upload batch produces.
type IngestResult struct {
	BatchID    string          `json:"batchId"`
	Combined   *DocumentRecord `json:"combined"`
	Files      []FileStatus    `json:"files"`
	Hints      string          `json:"hints,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
