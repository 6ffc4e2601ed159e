package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/agent/document/text"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

var errNoText = errors.New("no extractable text (scanned or image-only PDF)")

type Processor struct {
	logger logger.Logger
}

func NewProcessor(logger logger.Logger) *Processor {
	return &Processor{
		logger: logger,
	}
}

func (p *Processor) CanProcess(mimeType string) bool {
	return mimeType == document.MediaPDF
}

func (p *Processor) Type() models.DocumentType {
	return models.TypePDF
}

func (p *Processor) Extract(data []byte, fileName string) (*models.DocumentRecord, error) {
	if len(data) == 0 {
		return nil, text.ErrEmpty
	}

	res, err := p.extractPositional(data)
	if err != nil || strings.TrimSpace(res.text) == "" {
		p.logger.Warn("Position-aware PDF extraction failed, retrying with plain extraction",
			logger.String("fileName", fileName),
			logger.Any("cause", err),
		)
		plain, perr := p.extractPlain(data)
		if perr != nil {
			if err == nil {
				err = errNoText
			}
			return nil, fmt.Errorf("%w (plain retry: %v)", err, perr)
		}
		res.text = plain.text
		if res.pages == 0 {
			res.pages = plain.pages
		}
	}

	body := PostProcess(res.text)
	if strings.TrimSpace(body) == "" {
		return nil, errNoText
	}

	title := res.title
	if title == "" {
		title = firstLine(body)
	}

	return &models.DocumentRecord{
		FileName:  fileName,
		Type:      models.TypePDF,
		Content:   models.TextContent(body),
		PageCount: res.pages,
		StructuredData: &models.StructuredData{
			Title:           title,
			Sections:        document.SplitSections(body),
			Keywords:        document.ProcessKeywords(body),
			DiagramDetected: DetectDiagram(body, fileName),
		},
	}, nil
}

type extraction struct {
	text  string
	title string
	pages int
}

// extractPositional renders each page glyph run by run, starting a new line
// whenever the baseline moves.
func (p *Processor) extractPositional(data []byte) (res extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, fmt.Errorf("open pdf: %w", err)
	}
	res.pages = reader.NumPage()
	res.title = infoTitle(reader)

	var b strings.Builder
	for i := 1; i <= res.pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		var (
			lastY, lastEnd float64
			started        bool
		)
		for _, t := range page.Content().Text {
			if started && math.Abs(t.Y-lastY) > 1 {
				b.WriteString("\n")
			} else if started && t.X-lastEnd > t.FontSize*0.2 && !strings.HasPrefix(t.S, " ") {
				b.WriteString(" ")
			}
			b.WriteString(t.S)
			lastY, lastEnd, started = t.Y, t.X+t.W, true
		}
		b.WriteString("\n\n")
	}
	res.text = b.String()
	return res, nil
}

// extractPlain is the option-free fallback.
func (p *Processor) extractPlain(data []byte) (res extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, fmt.Errorf("open pdf: %w", err)
	}
	res.pages = reader.NumPage()
	rd, err := reader.GetPlainText()
	if err != nil {
		return res, fmt.Errorf("plain text: %w", err)
	}
	raw, err := io.ReadAll(rd)
	if err != nil {
		return res, fmt.Errorf("read plain text: %w", err)
	}
	res.text = string(raw)
	return res, nil
}

func infoTitle(r *pdf.Reader) string {
	trailer := r.Trailer()
	if trailer.IsNull() {
		return ""
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			if len(l) > 120 {
				l = l[:120]
			}
			return l
		}
	}
	return ""
}

var (
	spaceRunRe     = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	inlineHeaderRe = regexp.MustCompile(`([.!?])\s+(\d{1,2}\.\s+[A-Z])`)
)

// PostProcess collapses redundant whitespace while keeping paragraph breaks,
// puts detected headers on their own line, and separates pipe-table blocks.
func PostProcess(raw string) string {
	s := document.NormalizeNewlines(raw)
	s = inlineHeaderRe.ReplaceAllString(s, "$1\n$2")

	var out []string
	prevTable := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
		table := isTableLine(line)
		lastBlank := len(out) == 0 || out[len(out)-1] == ""

		switch {
		case line == "":
		case table && !prevTable && !lastBlank:
			out = append(out, "")
		case !table && prevTable && !lastBlank:
			out = append(out, "")
		case !table && document.IsHeaderLine(line) && !lastBlank:
			out = append(out, "")
		}
		out = append(out, line)
		if line != "" {
			prevTable = table
		}
	}
	return strings.TrimSpace(document.CollapseBlankLines(strings.Join(out, "\n")))
}

func isTableLine(line string) bool {
	return strings.Count(line, "|") >= 2
}

var (
	diagramNameRe  = regexp.MustCompile(`(?i)(diagram|flow|chart|bpmn|swim[-_ ]?lane|process[-_ ]?map)`)
	arrowRe        = regexp.MustCompile(`-->|->|=>|→|⇒|⟶`)
	bracketTokenRe = regexp.MustCompile(`\[[^\[\]\n]{1,80}\]|\([^()\n]{1,80}\)|\{[^{}\n]{1,80}\}`)
	diagramTerms   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bflow\s?chart\b`),
		regexp.MustCompile(`(?i)\bdecision\b`),
		regexp.MustCompile(`(?i)\bapprov(al|e|ed)\b`),
		regexp.MustCompile(`(?i)\bswim\s?lanes?\b`),
		regexp.MustCompile(`(?i)\bdiagram\b`),
		regexp.MustCompile(`(?i)\bworkflow\b`),
		regexp.MustCompile(`(?i)\bgateway\b`),
		regexp.MustCompile(`(?i)\bstart\b`),
		regexp.MustCompile(`(?i)\bend\b`),
		regexp.MustCompile(`(?i)\bprocess\s+map\b`),
	}
)

// DetectDiagram guesses whether a document contains or describes a flow diagram.
func DetectDiagram(body, fileName string) bool {
	if diagramNameRe.MatchString(fileName) {
		return true
	}
	hits := 0
	for _, re := range diagramTerms {
		if re.MatchString(body) {
			hits++
		}
	}
	if hits >= 3 {
		return true
	}
	return arrowRe.MatchString(body) && bracketTokenRe.MatchString(body)
}
