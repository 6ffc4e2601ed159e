package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// StubProvider is the registry name of the offline generator.
const StubProvider = "stub"

var stubStepRe = regexp.MustCompile(`(?im)^\s*(?:step\s*)?(\d+)[.):]\s+(.{3,80})$`)

// StubGenerator returns deterministic output without calling any service.
// Steps are lifted from numbered lines in the prompt when present.
type StubGenerator struct{}

func NewStubGenerator() *StubGenerator { return &StubGenerator{} }

func (s *StubGenerator) Name() string { return StubProvider }

func (s *StubGenerator) Generate(ctx context.Context, prompt, _ string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	steps := stubSteps(prompt)

	switch opts.Task {
	case TaskDiagram:
		var b strings.Builder
		b.WriteString("graph TD\n    S((Start))")
		for i, st := range steps {
			id := fmt.Sprintf("N%d", i+1)
			fmt.Fprintf(&b, " --> %s[\"Step %d: %s (30 minutes)\"]\n    %s", id, i+1, st, id)
		}
		b.WriteString(" --> E((End))\n")
		return b.String(), nil

	case TaskOptimize:
		return "```json\n" + `{
  "summary": "Combine the first two steps and automate routing.",
  "totalSteps": 2,
  "totalTime": "45 minutes",
  "suggestions": [
    {"title": "Merge intake steps", "description": "Capture request details once.", "timeSaved": "15 minutes"}
  ],
  "stepTimes": [
    {"step": 1, "stepName": "Intake and review", "time": "30 minutes"},
    {"step": 2, "stepName": "Automated routing", "time": "15 minutes"}
  ],
  "workflow": "graph TD\n    A[\"Step 1: Intake and review (30 minutes)\"] --> B[\"Step 2: Automated routing (15 minutes)\"]"
}` + "\n```", nil

	default:
		var b strings.Builder
		b.WriteString("# Process Document\n\n| Step | Name | Time |\n| --- | --- | --- |\n")
		for i, st := range steps {
			fmt.Fprintf(&b, "| %d | %s | 30 minutes |\n", i+1, st)
		}
		fmt.Fprintf(&b, "\nTotal Steps: %d\n", len(steps))
		return b.String(), nil
	}
}

func stubSteps(prompt string) []string {
	var steps []string
	for _, m := range stubStepRe.FindAllStringSubmatch(prompt, 8) {
		name := strings.Trim(strings.TrimSpace(m[2]), `"[]|`)
		steps = append(steps, strings.ReplaceAll(name, `"`, "'"))
	}
	if len(steps) == 0 {
		steps = []string{"Receive request", "Review request", "Complete request"}
	}
	return steps
}
