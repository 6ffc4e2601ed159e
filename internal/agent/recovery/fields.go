package recovery

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/ymu4/document-processor/internal/models"
)

// fromMap reads a decoded payload. Counts may arrive as numbers or strings and
// may be nested under "metrics" or "optimizedMetrics".
func fromMap(m map[string]interface{}) models.RecoveredResult {
	var res models.RecoveredResult
	scopes := []map[string]interface{}{m}
	for _, k := range []string{"optimizedMetrics", "metrics"} {
		if nested, ok := m[k].(map[string]interface{}); ok {
			scopes = append(scopes, nested)
		}
	}

	res.Summary = firstString(scopes, "summary")
	res.TotalTime = firstString(scopes, "totalTime", "total_time")

	if v, ok := first(scopes, "totalSteps", "total_steps"); ok {
		if n, err := cast.ToIntE(v); err == nil && n >= 0 {
			res.TotalSteps = &n
		} else if n, err := strconv.Atoi(strings.TrimSpace(cast.ToString(v))); err == nil && n >= 0 {
			res.TotalSteps = &n
		}
	}

	if v, ok := first(scopes, "suggestions"); ok {
		if items, ok := v.([]interface{}); ok {
			res.Suggestions = toSuggestions(items)
		}
	}
	if v, ok := first(scopes, "stepTimes", "step_times"); ok {
		if items, ok := v.([]interface{}); ok {
			res.StepTimes = toStepTimes(items)
		}
	}

	if v, ok := first(scopes, "workflow", "workflowDiagram", "diagram"); ok {
		switch w := v.(type) {
		case string:
			res.Workflow = strings.TrimSpace(w)
		case map[string]interface{}:
			res.Workflow = strings.TrimSpace(cast.ToString(w["diagram"]))
		}
	}
	return res
}

func first(scopes []map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, s := range scopes {
		for _, k := range keys {
			if v, ok := s[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func firstString(scopes []map[string]interface{}, keys ...string) string {
	v, ok := first(scopes, keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

func toSuggestions(items []interface{}) []models.Suggestion {
	out := make([]models.Suggestion, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, models.Suggestion{Title: v, Description: v})
			}
		case map[string]interface{}:
			s := models.Suggestion{
				Title:       pick(v, "title", "name"),
				Description: pick(v, "description", "details", "detail"),
				TimeSaved:   pick(v, "timeSaved", "time_saved", "timeSavings", "savings"),
			}
			if s.Title == "" && s.Description == "" {
				continue
			}
			if s.Title == "" {
				s.Title = s.Description
			}
			out = append(out, s)
		}
	}
	return out
}

func toStepTimes(items []interface{}) []models.StepTime {
	out := make([]models.StepTime, 0, len(items))
	for i, it := range items {
		v, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		st := models.StepTime{
			Step:     pick(v, "step", "stepNumber"),
			StepName: pick(v, "stepName", "name", "title"),
			Time:     pick(v, "time", "duration"),
		}
		if st.Step == "" {
			st.Step = strconv.Itoa(i + 1)
		}
		out = append(out, st)
	}
	return out
}

func pick(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(cast.ToString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
