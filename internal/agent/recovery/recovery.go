package recovery

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

const genericSummary = "The process was analysed and several optimization opportunities were identified."

var (
	fenceRe         = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\n?(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

	quotedSummaryRe = regexp.MustCompile(`(?is)"summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	labelSummaryRe  = regexp.MustCompile(`(?im)^[\s#*>-]*summary[\s*]*:?[\s*]*(.*)$`)
	totalStepsRe    = regexp.MustCompile(`(?i)"?total[\s_]*steps"?[\s*]*[:=]?[\s*]*"?(\d+)`)
	quotedTimeRe    = regexp.MustCompile(`(?i)"total_?time"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	labelTimeRe     = regexp.MustCompile(`(?im)total\s+time[\s*]*:[\s*]*(.+)$`)
	suggestionsRe   = regexp.MustCompile(`(?i)"?suggestions"?[\s*]*:?\s*`)
	stepTimesRe     = regexp.MustCompile(`(?i)"step_?times"\s*:\s*`)
	quotedFlowRe    = regexp.MustCompile(`(?is)"(?:workflow|workflowDiagram|diagram)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	graphDeclRe     = regexp.MustCompile(`(?m)^[ \t]*(?:graph|flowchart)[ \t]+(?:TD|TB|BT|LR|RL)\b`)
	singleQuotedRe  = regexp.MustCompile(`([\[{,:]\s*)'((?:[^'\\]|\\.)*)'(\s*[\]},:])`)
)

var smartQuotes = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// DefaultSuggestions are offered when generated text yields none.
func DefaultSuggestions() []models.Suggestion {
	return []models.Suggestion{
		{
			Title:       "Automate repetitive steps",
			Description: "Identify manual data entry and hand-offs that can be automated to reduce cycle time.",
		},
		{
			Title:       "Run independent steps in parallel",
			Description: "Steps that do not depend on each other can be performed concurrently to shorten the overall process.",
		},
	}
}

// Default is the well-shaped result returned when nothing can be recovered.
func Default() models.RecoveredResult {
	return models.RecoveredResult{
		Summary:     genericSummary,
		Suggestions: DefaultSuggestions(),
		StepTimes:   []models.StepTime{},
	}
}

// WithDefaults fills the summary and suggestions when they are missing.
func WithDefaults(r models.RecoveredResult) models.RecoveredResult {
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = genericSummary
	}
	if len(r.Suggestions) == 0 {
		r.Suggestions = DefaultSuggestions()
	}
	return r
}

// Parser rebuilds a structured optimization result from free-form generated text.
type Parser struct {
	logger logger.Logger
}

func NewParser(log logger.Logger) *Parser {
	return &Parser{logger: log}
}

// Recover tries, in order: a fenced code block, the whole text as JSON, and
// field-by-field pattern matching. It never fails.
func (p *Parser) Recover(raw string) (res models.RecoveredResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("Recovery parsing panicked, using default result", logger.Any("panic", r))
			res = Default()
		}
	}()

	if m, ok := fromFence(raw); ok {
		p.logger.Debug("Recovered result from fenced block")
		return fromMap(m)
	}
	if m, ok := fromWhole(raw); ok {
		p.logger.Debug("Recovered result from raw JSON")
		return fromMap(m)
	}
	p.logger.Debug("Recovering result field by field")
	return fromFields(raw)
}

// Recover runs a Parser without logging.
func Recover(raw string) models.RecoveredResult {
	return NewParser(logger.NewNop()).Recover(raw)
}

func fromFence(raw string) (map[string]interface{}, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		if obj, ok := decodeObject(repairCommas(m[1])); ok {
			return obj, true
		}
	}
	return nil, false
}

func fromWhole(raw string) (map[string]interface{}, bool) {
	s := strings.TrimSpace(raw)
	if obj, ok := decodeObject(s); ok {
		return obj, true
	}
	// Prose around a single object.
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		if obj, ok := decodeObject(repairCommas(s[start : end+1])); ok && hasKnownField(obj) {
			return obj, true
		}
	}
	return nil, false
}

var knownFields = []string{
	"summary", "totalSteps", "totalTime", "suggestions", "stepTimes",
	"workflow", "workflowDiagram", "diagram", "metrics", "optimizedMetrics",
}

func hasKnownField(obj map[string]interface{}) bool {
	for _, k := range knownFields {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func repairCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(strings.TrimSpace(s), "$1")
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func fromFields(raw string) models.RecoveredResult {
	var res models.RecoveredResult

	if m := quotedSummaryRe.FindStringSubmatch(raw); m != nil {
		res.Summary = unquote(m[1])
	} else if loc := labelSummaryRe.FindStringSubmatchIndex(raw); loc != nil {
		v := strings.TrimSpace(raw[loc[2]:loc[3]])
		if v == "" {
			v = nextLine(raw[loc[1]:])
		}
		res.Summary = strings.Trim(v, `*" `)
	}

	if m := totalStepsRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			res.TotalSteps = &n
		}
	}

	if m := quotedTimeRe.FindStringSubmatch(raw); m != nil {
		res.TotalTime = unquote(m[1])
	} else if m := labelTimeRe.FindStringSubmatch(raw); m != nil {
		res.TotalTime = strings.Trim(strings.TrimSpace(m[1]), `*",`)
	}

	// The label may only appear in prose after the array, so an unlabelled
	// array of objects is tried whenever the labelled search finds none.
	arr, found := "", false
	if loc := suggestionsRe.FindStringIndex(raw); loc != nil {
		arr, found = bracketed(raw[loc[1]:])
	}
	if !found {
		if i := strings.Index(raw, "[{"); i >= 0 {
			arr, found = bracketed(raw[i:])
		}
	}
	if found {
		res.Suggestions = parseSuggestions(arr)
	}

	if loc := stepTimesRe.FindStringIndex(raw); loc != nil {
		if arr, ok := bracketed(raw[loc[1]:]); ok {
			var items []interface{}
			if json.Unmarshal([]byte(normalizeQuotes(arr)), &items) == nil {
				res.StepTimes = toStepTimes(items)
			}
		}
	}

	if m := quotedFlowRe.FindStringSubmatch(raw); m != nil {
		res.Workflow = unquote(m[1])
	} else if loc := graphDeclRe.FindStringIndex(raw); loc != nil {
		flow := raw[loc[0]:]
		if i := strings.Index(flow, "```"); i >= 0 {
			flow = flow[:i]
		}
		res.Workflow = strings.TrimSpace(flow)
	}
	return res
}

// parseSuggestions decodes a bracketed array; an array that cannot be decoded
// becomes one generic suggestion.
func parseSuggestions(arr string) []models.Suggestion {
	var items []interface{}
	if err := json.Unmarshal([]byte(normalizeQuotes(arr)), &items); err != nil {
		return []models.Suggestion{{
			Title:       "Review process for optimization",
			Description: "The generated suggestions could not be read; review the process steps for automation and consolidation opportunities.",
		}}
	}
	return toSuggestions(items)
}

func normalizeQuotes(s string) string {
	s = smartQuotes.Replace(s)
	s = singleQuotedRe.ReplaceAllString(s, `$1"$2"$3`)
	// Applied twice: adjacent tokens share a separator.
	s = singleQuotedRe.ReplaceAllString(s, `$1"$2"$3`)
	return repairCommas(s)
}

// bracketed returns the balanced [...] block starting at the first '[' of s,
// ignoring brackets inside double-quoted strings.
func bracketed(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	depth, inStr, esc := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			esc = false
		case c == '\\' && inStr:
			esc = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func unquote(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

func nextLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
