package metrics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/converters"
	"github.com/ymu4/document-processor/pkg/logger"
)

var (
	numColRe  = regexp.MustCompile(`(?i)^\s*(#|no\.?|num(ber)?|seq(uence)?|step\s*(#|no\.?|num(ber)?)?)\s*$`)
	nameColRe = regexp.MustCompile(`(?i)step|activity|task|action|process|name|description`)
	timeColRe = regexp.MustCompile(`(?i)time|duration|estimate|effort|sla`)
	digitsRe  = regexp.MustCompile(`\d+`)

	totalStepsRe = regexp.MustCompile(`(?i)total\s+(?:number\s+of\s+)?steps\s*[:=]?[\s*]*(\d+)`)
	totalTimeRe  = regexp.MustCompile(`(?i)total\s+(?:estimated\s+)?(?:process\s+)?time\s*[:=][\s*]*([^\n<|*]+)`)
	stepLineRe   = regexp.MustCompile(`(?im)^[\s>*#-]*(?:\*\*)?step\s+(\d+)\s*(?:\*\*)?\s*[:.)\-]\s*(.+?)\s*\(([^()]*\d[^()]*)\)\s*$`)
	pipeSepRe    = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
)

// DocumentExtractor reads step tables out of a generated process document,
// either HTML or markdown.
type DocumentExtractor struct {
	durations DurationParser
	logger    logger.Logger
}

func NewDocumentExtractor(workdayHours float64, log logger.Logger) *DocumentExtractor {
	return &DocumentExtractor{durations: NewDurationParser(workdayHours), logger: log}
}

// Extract never fails; a document without recognisable steps yields empty metrics.
func (e *DocumentExtractor) Extract(doc string) (out models.ProcessMetrics) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Document metrics extraction panicked", logger.Any("panic", r))
			out = models.EmptyMetrics()
		}
	}()

	out = models.EmptyMetrics()
	if strings.TrimSpace(doc) == "" {
		return out
	}

	// Line and total patterns run on tag-free text, one block element per line.
	plain := doc
	var steps []models.StepTime
	if converters.IsHTML(doc) {
		if d, err := goquery.NewDocumentFromReader(strings.NewReader(doc)); err == nil {
			steps = htmlTableSteps(d)
			d.Find("br,p,li,tr,td,th,h1,h2,h3,h4,h5,h6,div").AppendHtml("\n")
			plain = d.Text()
		} else {
			e.logger.Debug("Failed to parse generated document as HTML", logger.Error(err))
		}
	}
	if len(steps) == 0 {
		steps = pipeTableSteps(plain)
	}
	if len(steps) == 0 {
		steps = stepLines(plain)
	}
	if steps != nil {
		out.StepTimes = steps
	}

	out.TotalSteps = len(out.StepTimes)
	if m := totalStepsRe.FindStringSubmatch(plain); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.TotalSteps = n
		}
	}

	if m := totalTimeRe.FindStringSubmatch(plain); m != nil {
		if v := strings.TrimSpace(m[1]); len(e.durations.Find(v)) > 0 {
			out.TotalTime = v
			return out
		}
	}
	var (
		sum   float64
		timed bool
	)
	for _, s := range out.StepTimes {
		if mins, ok := e.durations.ToMinutes(s.Time); ok {
			sum += mins
			timed = true
		}
	}
	if timed {
		out.TotalTime = FormatMinutes(sum)
	}
	return out
}

// columns locates the step number, step name and time columns of a header row.
func columns(headers []string) (num, name, tm int, ok bool) {
	num, name, tm = -1, -1, -1
	for i, h := range headers {
		switch {
		case num < 0 && numColRe.MatchString(h):
			num = i
		case tm < 0 && timeColRe.MatchString(h):
			tm = i
		case name < 0 && nameColRe.MatchString(h):
			name = i
		}
	}
	return num, name, tm, tm >= 0 && (num >= 0 || name >= 0)
}

func rowsToSteps(rows [][]string, num, name, tm int) []models.StepTime {
	cell := func(r []string, i int) string {
		if i < 0 || i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}
	steps := []models.StepTime{}
	for _, r := range rows {
		if strings.TrimSpace(strings.Join(r, "")) == "" {
			continue
		}
		idx := strconv.Itoa(len(steps) + 1)
		step := idx
		if v := digitsRe.FindString(cell(r, num)); v != "" {
			step = v
		}
		stepName := cell(r, name)
		if stepName == "" {
			stepName = "Step " + step
		}
		t := cell(r, tm)
		if t == "" {
			t = models.TimeNotSpecified
		}
		steps = append(steps, models.StepTime{Step: step, StepName: stepName, Time: t})
	}
	return steps
}

func htmlTableSteps(d *goquery.Document) []models.StepTime {
	var found []models.StepTime
	d.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		var grid [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(c.Text()), " "))
			})
			if len(cells) > 0 {
				grid = append(grid, cells)
			}
		})
		if len(grid) < 2 {
			return true
		}
		num, name, tm, ok := columns(grid[0])
		if !ok {
			return true
		}
		if steps := rowsToSteps(grid[1:], num, name, tm); len(steps) > 0 {
			found = steps
			return false
		}
		return true
	})
	return found
}

func pipeTableSteps(doc string) []models.StepTime {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	for i := 0; i+1 < len(lines); i++ {
		head := strings.TrimSpace(lines[i])
		if strings.Count(head, "|") < 2 || !pipeSepRe.MatchString(strings.TrimSpace(lines[i+1])) {
			continue
		}
		num, name, tm, ok := columns(splitPipeRow(head))
		if !ok {
			continue
		}
		var rows [][]string
		for j := i + 2; j < len(lines); j++ {
			l := strings.TrimSpace(lines[j])
			if strings.Count(l, "|") < 1 {
				break
			}
			rows = append(rows, splitPipeRow(l))
		}
		if steps := rowsToSteps(rows, num, name, tm); len(steps) > 0 {
			return steps
		}
	}
	return nil
}

func splitPipeRow(line string) []string {
	line = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(line), "|"), "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), "*")
	}
	return parts
}

func stepLines(doc string) []models.StepTime {
	var steps []models.StepTime
	seen := map[string]bool{}
	for _, m := range stepLineRe.FindAllStringSubmatch(doc, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		steps = append(steps, models.StepTime{
			Step:     m[1],
			StepName: strings.Trim(strings.TrimSpace(m[2]), "*"),
			Time:     strings.TrimSpace(m[3]),
		})
	}
	return steps
}
