package metrics

import (
	"math"
	"strconv"

	"github.com/ymu4/document-processor/internal/models"
)

// DefaultSavingsPercent is reported when a savings percentage cannot be computed.
const DefaultSavingsPercent = 30

// Merger reconciles diagram, document and optimization metrics.
type Merger struct {
	durations      DurationParser
	defaultSavings int
}

// NewMerger returns a merger reporting defaultSavings when savings cannot be computed.
func NewMerger(workdayHours float64, defaultSavings int) *Merger {
	if defaultSavings <= 0 {
		defaultSavings = DefaultSavingsPercent
	}
	return &Merger{durations: NewDurationParser(workdayHours), defaultSavings: defaultSavings}
}

// Merge lets diagram values win whenever they are present and falls back to
// the document values otherwise. The result always satisfies
// len(StepTimes) == TotalSteps. When optimization is non-nil it is normalised
// too and a savings percentage is computed against the merged total.
func (m *Merger) Merge(diagram, document models.ProcessMetrics, optimization *models.ProcessMetrics) models.MergeResult {
	merged := models.EmptyMetrics()

	merged.TotalSteps = document.TotalSteps
	if diagram.TotalSteps > 0 {
		merged.TotalSteps = diagram.TotalSteps
	}

	switch {
	case diagram.HasTime():
		merged.TotalTime = diagram.TotalTime
	case document.HasTime():
		merged.TotalTime = document.TotalTime
	}

	src := document.StepTimes
	if len(diagram.StepTimes) > 0 {
		src = diagram.StepTimes
	}
	merged.StepTimes = append(merged.StepTimes, src...)

	res := models.MergeResult{Metrics: Normalize(merged)}
	if optimization != nil {
		opt := Normalize(*optimization)
		pct := m.SavingsPercent(res.Metrics.TotalTime, opt.TotalTime)
		res.Optimized = &opt
		res.TimeSavingsPercent = &pct
	}
	return res
}

// Normalize truncates or pads StepTimes to exactly TotalSteps entries. Padded
// entries are numbered by position with an unspecified time. It is idempotent.
func Normalize(in models.ProcessMetrics) models.ProcessMetrics {
	out := models.ProcessMetrics{TotalSteps: in.TotalSteps, TotalTime: in.TotalTime}
	if out.TotalSteps < 0 {
		out.TotalSteps = 0
	}
	if out.TotalTime == "" {
		out.TotalTime = models.TimeUnknown
	}

	n := out.TotalSteps
	out.StepTimes = make([]models.StepTime, 0, n)
	for i := 0; i < n; i++ {
		if i < len(in.StepTimes) {
			st := in.StepTimes[i]
			if st.Step == "" {
				st.Step = strconv.Itoa(i + 1)
			}
			if st.StepName == "" {
				st.StepName = "Step " + st.Step
			}
			if st.Time == "" {
				st.Time = models.TimeNotSpecified
			}
			out.StepTimes = append(out.StepTimes, st)
			continue
		}
		step := strconv.Itoa(i + 1)
		out.StepTimes = append(out.StepTimes, models.StepTime{
			Step:     step,
			StepName: "Step " + step,
			Time:     models.TimeNotSpecified,
		})
	}
	return out
}

// SavingsPercent is round((orig-opt)/orig*100), or the configured default when
// either total cannot be converted to minutes or the original is zero.
func (m *Merger) SavingsPercent(original, optimized string) int {
	o, ok1 := m.durations.ToMinutes(original)
	p, ok2 := m.durations.ToMinutes(optimized)
	if !ok1 || !ok2 || o <= 0 {
		return m.defaultSavings
	}
	return int(math.Round((o - p) / o * 100))
}
