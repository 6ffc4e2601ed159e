package metrics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

var (
	// boxRe matches an optional node id followed by a [Label] box.
	boxRe       = regexp.MustCompile(`([A-Za-z0-9_]+)?\s*\[+"?([^\[\]\n"]+)"?\]+`)
	quotedRe    = regexp.MustCompile(`"([^"\n]+)"`)
	stepLabelRe = regexp.MustCompile(`(?i)\b(?:step|process|activity)\s*#?\s*(\d+)`)
	terminalRe  = regexp.MustCompile(`(?i)\b(?:start|end|begin)\b`)
	subgraphRe  = regexp.MustCompile(`(?im)^\s*subgraph\b.*$`)
)

type box struct {
	id    string
	label string
}

// DiagramExtractor reads step counts and durations out of flow mini-language text.
type DiagramExtractor struct {
	durations DurationParser
	logger    logger.Logger
}

// NewDiagramExtractor returns an extractor converting day tokens with workdayHours.
func NewDiagramExtractor(workdayHours float64, log logger.Logger) *DiagramExtractor {
	return &DiagramExtractor{durations: NewDurationParser(workdayHours), logger: log}
}

// Extract never fails; on any internal error it returns zeroed metrics with an "Unknown" total.
func (e *DiagramExtractor) Extract(diagram string) (out models.DiagramMetrics) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Diagram metrics extraction panicked", logger.Any("panic", r))
			out = emptyDiagramMetrics()
		}
	}()

	out = emptyDiagramMetrics()
	if strings.TrimSpace(diagram) == "" {
		return out
	}

	// Subgraph titles are group names, not steps.
	body := subgraphRe.ReplaceAllString(diagram, "")
	boxes := uniqueBoxes(body)

	out.TotalSteps = e.countSteps(body, boxes)

	found := e.durations.Find(diagram)
	if len(found) > 0 {
		var total float64
		for _, d := range found {
			total += d.Minutes
			out.TimeEstimates = append(out.TimeEstimates, d.Raw)
		}
		out.TotalTime = FormatMinutes(total)
	}

	out.StepTimes = e.stepTimes(boxes)
	return out
}

func emptyDiagramMetrics() models.DiagramMetrics {
	return models.DiagramMetrics{ProcessMetrics: models.EmptyMetrics(), TimeEstimates: []string{}}
}

// countSteps counts distinct "Step N" labels inside boxes or quotes, falling
// back to counting every box that is not a start or end marker.
func (e *DiagramExtractor) countSteps(body string, boxes []box) int {
	seen := map[string]bool{}
	labels := make([]string, 0, len(boxes))
	for _, b := range boxes {
		labels = append(labels, b.label)
	}
	for _, m := range quotedRe.FindAllStringSubmatch(body, -1) {
		labels = append(labels, m[1])
	}
	for _, l := range labels {
		if m := stepLabelRe.FindStringSubmatch(l); m != nil {
			seen[m[1]] = true
		}
	}
	if len(seen) > 0 {
		return len(seen)
	}

	n := 0
	for _, b := range boxes {
		if !terminalRe.MatchString(b.label) {
			n++
		}
	}
	return n
}

// stepTimes prefers boxes carrying both a step label and a duration. Without
// any, every non-terminal box becomes a densely numbered step.
func (e *DiagramExtractor) stepTimes(boxes []box) []models.StepTime {
	var (
		primary []models.StepTime
		seen    = map[string]bool{}
	)
	for _, b := range boxes {
		m := stepLabelRe.FindStringSubmatch(b.label)
		ds := e.durations.Find(b.label)
		if m == nil || len(ds) == 0 || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		primary = append(primary, models.StepTime{
			Step:     m[1],
			StepName: stripDuration(b.label),
			Time:     ds[0].Raw,
		})
	}
	if len(primary) > 0 {
		return primary
	}

	steps := []models.StepTime{}
	for _, b := range boxes {
		if terminalRe.MatchString(b.label) {
			continue
		}
		t := models.TimeUnknown
		if ds := e.durations.Find(b.label); len(ds) > 0 {
			t = ds[0].Raw
		}
		steps = append(steps, models.StepTime{
			Step:     strconv.Itoa(len(steps) + 1),
			StepName: stripDuration(b.label),
			Time:     t,
		})
	}
	return steps
}

// uniqueBoxes returns boxes in order of appearance, each node id once.
func uniqueBoxes(body string) []box {
	var (
		out  []box
		seen = map[string]bool{}
	)
	for _, m := range boxRe.FindAllStringSubmatch(body, -1) {
		label := strings.TrimSpace(m[2])
		if label == "" {
			continue
		}
		key := m[1]
		if key == "" {
			key = "label:" + label
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, box{id: m[1], label: label})
	}
	return out
}

var (
	parenDurationRe = regexp.MustCompile(`(?i)\(\s*` + durationPattern + `\s*\)`)
	trailingPunctRe = regexp.MustCompile(`[\s:,;\-–]+$`)
)

// stripDuration removes duration tokens, with their parentheses, from a label.
func stripDuration(label string) string {
	s := parenDurationRe.ReplaceAllString(label, "")
	s = durationRe.ReplaceAllString(s, "${1}")
	s = strings.Join(strings.Fields(s), " ")
	return trailingPunctRe.ReplaceAllString(s, "")
}
