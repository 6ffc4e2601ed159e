package models

const (
	TimeUnknown      = "Unknown"
	TimeNotSpecified = "Not specified"
)

// StepTime is one process step with its duration estimate.
type StepTime struct {
	Step     string `json:"step"`
	StepName string `json:"stepName"`
	Time     string `json:"time"`
}

// ProcessMetrics is the reconciled step count and duration summary of a process.
type ProcessMetrics struct {
	TotalSteps int        `json:"totalSteps"`
	TotalTime  string     `json:"totalTime"`
	StepTimes  []StepTime `json:"stepTimes"`
}

// EmptyMetrics is the zero value callers fall back to.
func EmptyMetrics() ProcessMetrics {
	return ProcessMetrics{TotalTime: TimeUnknown, StepTimes: []StepTime{}}
}

// HasTime reports whether TotalTime carries a real duration.
func (m ProcessMetrics) HasTime() bool {
	return m.TotalTime != "" && m.TotalTime != TimeUnknown && m.TotalTime != TimeNotSpecified
}

// DiagramMetrics is what the diagram extractor produces.
type DiagramMetrics struct {
	ProcessMetrics
	// TimeEstimates lists every raw duration token found, in order.
	TimeEstimates []string `json:"timeEstimates"`
}

// DiagramDescription is flow mini-language text plus its kind.
type DiagramDescription struct {
	Diagram string `json:"diagram"`
	Type    string `json:"type"`
}

const DiagramTypeFlow = "flow"

// Suggestion is one optimization proposal.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TimeSaved   string `json:"timeSaved,omitempty"`
}

// RecoveredResult is the best-effort object rebuilt from generated text.
// Every field is optional.
type RecoveredResult struct {
	Summary     string       `json:"summary,omitempty"`
	TotalSteps  *int         `json:"totalSteps,omitempty"`
	TotalTime   string       `json:"totalTime,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	StepTimes   []StepTime   `json:"stepTimes,omitempty"`
	Workflow    string       `json:"workflow,omitempty"`
}

// Metrics projects the recovered counts onto ProcessMetrics.
func (r RecoveredResult) Metrics() ProcessMetrics {
	m := EmptyMetrics()
	if r.TotalSteps != nil {
		m.TotalSteps = *r.TotalSteps
	}
	if r.TotalTime != "" {
		m.TotalTime = r.TotalTime
	}
	if len(r.StepTimes) > 0 {
		m.StepTimes = append([]StepTime{}, r.StepTimes...)
	}
	return m
}

// MergeResult is the output of the metrics merger.
type MergeResult struct {
	Metrics            ProcessMetrics  `json:"metrics"`
	Optimized          *ProcessMetrics `json:"optimizedMetrics,omitempty"`
	TimeSavingsPercent *int            `json:"timeSavingsPercent,omitempty"`
}

// GeneratedArtifacts is what the generation step returns for a combined record.
type GeneratedArtifacts struct {
	Document string             `json:"document"`
	Diagram  DiagramDescription `json:"diagram"`
	Metrics  ProcessMetrics     `json:"metrics"`
}

// OptimizeRequest is the input of the optimization boundary.
type OptimizeRequest struct {
	OriginalMetrics ProcessMetrics     `json:"originalMetrics"`
	WorkflowDiagram DiagramDescription `json:"workflowDiagram"`
}

// OptimizeResult is the output of the optimization boundary.
type OptimizeResult struct {
	Summary            string             `json:"summary"`
	Suggestions        []Suggestion       `json:"suggestions"`
	Metrics            ProcessMetrics     `json:"metrics"`
	OriginalMetrics    ProcessMetrics     `json:"originalMetrics"`
	WorkflowDiagram    DiagramDescription `json:"workflowDiagram"`
	TimeSavingsPercent int                `json:"timeSavingsPercent"`
}
