package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ymu4/document-processor/internal/agent/document"
	"github.com/ymu4/document-processor/internal/models"
)

const (
	maxBlockRunes   = 600
	maxListed       = 10
	processSamples  = 5
	roleTimeSamples = 3
)

type probe struct {
	label string
	re    *regexp.Regexp
	block bool
}

// inlineProbe matches "Alias: value" on one line.
func inlineProbe(label string, aliases ...string) probe {
	return probe{
		label: label,
		re:    regexp.MustCompile(`(?im)^[\s#*>-]*(?:\d+(?:\.\d+)*[.)]?\s*)?(?:` + strings.Join(aliases, "|") + `)[\s*]*[:#][\s*]*(\S.*)$`),
	}
}

// blockProbe matches a heading line and captures what follows up to a blank line.
func blockProbe(label string, aliases ...string) probe {
	return probe{
		label: label,
		re:    regexp.MustCompile(`(?im)^[\s#*>-]*(?:\d+(?:\.\d+)*[.)]?\s*)?(?:` + strings.Join(aliases, "|") + `)[\s*]*:?[ \t*]*(.*)$`),
		block: true,
	}
}

var probes = []probe{
	inlineProbe("Title", "title", "document title", "process name", "procedure name"),
	inlineProbe("Document ID", "document id", "doc id", "document no\\.?", "document number", "process id", "reference", "ref"),
	inlineProbe("Date", "date", "effective date", "last updated", "revision date", "version date"),
	inlineProbe("Owner", "owner", "process owner", "document owner", "author", "prepared by"),
	blockProbe("Description", "description", "overview", "introduction"),
	blockProbe("Objective", "objectives?", "purpose", "goals?"),
	blockProbe("Scope", "scope"),
	blockProbe("Steps", "steps", "procedure", "process steps", "activities", "workflow"),
	blockProbe("Roles", "roles", "roles and responsibilities", "responsibilities", "stakeholders"),
	blockProbe("Approvals", "approvals?", "sign-?off", "authori[sz]ation"),
	blockProbe("Inputs", "inputs?", "prerequisites", "requirements"),
	blockProbe("Outputs", "outputs?", "deliverables", "results"),
	blockProbe("Dependencies", "dependencies", "related documents", "references"),
	blockProbe("Challenges", "challenges", "issues", "pain points", "risks"),
	blockProbe("Improvements", "improvements", "recommendations", "opportunities"),
	blockProbe("Notes", "notes?", "remarks", "comments"),
	blockProbe("Time estimates", "time estimates?", "timeline", "duration", "sla", "turnaround time"),
}

var (
	numberedRe = regexp.MustCompile(`(?m)^\s*(\d+(?:\.\d+)*[.)])\s+(\S.{0,100})$`)
	bulletRe   = regexp.MustCompile(`(?m)^\s*[-*•●▪◦]\s+(\S.{0,100})$`)
	tableRe    = regexp.MustCompile(`(?m)^\s*(\+[-=+]{3,}|\|.*\|.*)$`)
	durationRe = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:minutes?|mins?|hours?|hrs?|days?|weeks?)\b`)

	processColRe = regexp.MustCompile(`(?i)step|task|activity|process|action|stage|phase|procedure`)
	roleColRe    = regexp.MustCompile(`(?i)role|owner|responsible|assignee|actor|department|team|approver|performed by`)
	timeColRe    = regexp.MustCompile(`(?i)time|duration|minutes|hours|days|sla|effort|estimate|deadline`)
)

// Analyze returns advisory hints about a record for the generation step.
// Nothing here is authoritative; an unusable record yields "".
func Analyze(rec *models.DocumentRecord) string {
	if rec == nil || !rec.Parsed {
		return ""
	}
	if rec.Content.IsTabular() {
		return analyzeTabular(rec)
	}
	return analyzeText(rec.Content.Text)
}

func analyzeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = document.NormalizeNewlines(text)
	var b strings.Builder

	for _, p := range probes {
		if v := p.find(text); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", p.label, v)
		}
	}

	if sections := limit(numberedRe.FindAllStringSubmatch(text, -1), maxListed); len(sections) > 0 {
		b.WriteString("Numbered sections:\n")
		for _, m := range sections {
			fmt.Fprintf(&b, "- %s %s\n", m[1], strings.TrimSpace(m[2]))
		}
	}

	if all := bulletRe.FindAllStringSubmatch(text, -1); len(all) > 0 {
		fmt.Fprintf(&b, "Bullet items (%d):\n", len(all))
		for _, m := range limit(all, maxListed) {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(m[1]))
		}
	}

	var headers []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); document.IsAllCapsHeader(l) && !tableRe.MatchString(l) {
			headers = append(headers, l)
		}
	}
	if len(headers) > 0 {
		fmt.Fprintf(&b, "Headers: %s\n", strings.Join(limit(headers, maxListed), "; "))
	}

	if n := len(tableRe.FindAllString(text, -1)); n > 0 {
		fmt.Fprintf(&b, "Table-like lines: %d\n", n)
	}

	if ds := durationRe.FindAllString(text, -1); len(ds) > 0 {
		fmt.Fprintf(&b, "Time references: %s\n", strings.Join(dedupe(ds), ", "))
	}

	return strings.TrimSpace(b.String())
}

func (p probe) find(text string) string {
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		first := strings.TrimSpace(text[loc[2]:loc[3]])
		if !p.block {
			return clip(first)
		}
		// A block heading either carries a colon or stands alone on its line.
		if first != "" && !strings.Contains(text[loc[0]:loc[2]], ":") {
			continue
		}
		return clip(p.collect(text[loc[1]:], first))
	}
	return ""
}

func (p probe) collect(rest, first string) string {
	var lines []string
	if first != "" {
		lines = append(lines, first)
	}
	for _, l := range strings.Split(rest, "\n")[1:] {
		t := strings.TrimSpace(l)
		if t == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if document.IsHeaderLine(t) && !bulletRe.MatchString(l) && !numberedRe.MatchString(l) {
			break
		}
		lines = append(lines, t)
	}
	return strings.Join(lines, " / ")
}

func analyzeTabular(rec *models.DocumentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tabular data: %d rows, %d columns\n", len(rec.Content.Rows), len(rec.Headers))
	if len(rec.Headers) > 0 {
		fmt.Fprintf(&b, "Columns: %s\n", strings.Join(rec.Headers, ", "))
	}

	flag := func(label string, re *regexp.Regexp, n int) {
		for _, h := range rec.Headers {
			if !re.MatchString(h) {
				continue
			}
			fmt.Fprintf(&b, "%s column %q", label, h)
			if samples := sampleValues(rec.Content.Rows, h, n); len(samples) > 0 {
				fmt.Fprintf(&b, " (e.g. %s)", strings.Join(samples, ", "))
			}
			b.WriteString("\n")
		}
	}
	flag("Process", processColRe, processSamples)
	flag("Role", roleColRe, roleTimeSamples)
	flag("Time", timeColRe, roleTimeSamples)

	return strings.TrimSpace(b.String())
}

func sampleValues(rows []models.Row, col string, n int) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range rows {
		v := strings.TrimSpace(r[col])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

func limit[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		k := strings.ToLower(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

func clip(s string) string {
	r := []rune(s)
	if len(r) > maxBlockRunes {
		return string(r[:maxBlockRunes]) + "..."
	}
	return s
}
