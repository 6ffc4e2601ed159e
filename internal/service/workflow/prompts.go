package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ymu4/document-processor/internal/models"
)

const documentSystem = `You are a business process analyst. Rewrite the source material as a clear process document in Markdown.
Include a title, purpose, roles and a table with the columns Step, Name and Time listing every step in order.
Give each step a time estimate such as "15 minutes" or "2 hours". End with "Total Steps: N" and "Total Time: <duration>".`

const diagramSystem = `You draw process flowcharts in Mermaid. Output only the diagram, starting with "graph TD".
Use boxes labelled "Step N: <name> (<duration>)", decisions in {braces}, and arrows "-->" with optional |labels|.
Begin with a Start node and finish with an End node.`

const optimizeSystem = `You are a process improvement consultant. Respond with a single JSON object and nothing else:
{"summary": string, "totalSteps": number, "totalTime": string,
 "suggestions": [{"title": string, "description": string, "timeSaved": string}],
 "stepTimes": [{"step": number, "stepName": string, "time": string}],
 "workflow": string (Mermaid "graph TD" diagram of the optimized process)}`

func documentPrompt(fileNames []string, content, hints string) string {
	var b strings.Builder
	if len(fileNames) > 0 {
		fmt.Fprintf(&b, "Source files: %s\n\n", strings.Join(fileNames, ", "))
	}
	if hints != "" {
		fmt.Fprintf(&b, "Structure detected in the source:\n%s\n\n", hints)
	}
	fmt.Fprintf(&b, "Source material:\n%s\n", content)
	return b.String()
}

func diagramPrompt(content, hints string) string {
	var b strings.Builder
	b.WriteString("Draw the workflow described below.\n\n")
	if hints != "" {
		fmt.Fprintf(&b, "Hints:\n%s\n\n", hints)
	}
	fmt.Fprintf(&b, "Process:\n%s\n", content)
	return b.String()
}

func optimizePrompt(req models.OptimizeRequest) string {
	metrics, _ := json.MarshalIndent(req.OriginalMetrics, "", "  ")
	return fmt.Sprintf("Current metrics:\n%s\n\nCurrent workflow:\n%s\n\nPropose an optimized process with fewer steps or less total time.",
		metrics, req.WorkflowDiagram.Diagram)
}

// truncateRunes cuts s to at most n runes, marking the cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n[... truncated ...]"
}
