package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// Defaults for optional pattern fields the model left out.
const (
	DefaultPersistence     = "Unknown"
	DefaultPressureContext = "Unspecified"
	DefaultContradictions  = "None"
)

// AssignmentDraft is an axis assignment as the model described it, before
// its pattern reference is resolved against stored patterns.
type AssignmentDraft struct {
	PatternID          string
	PatternDescription string
	AxisName           string
	Justification      string
}

// Patterns decodes pattern detection output.
func Patterns(raw string) ([]models.Pattern, error) {
	records, err := Normalize(raw, models.PhasePatternDetection)
	if err != nil {
		return nil, err
	}
	patterns := make([]models.Pattern, 0, len(records))
	for _, r := range records {
		rec, ok := models.ParseRecurrence(r.str("recurrence"))
		if !ok {
			rec = models.RecurrenceMedium
		}
		patterns = append(patterns, models.Pattern{
			Description:     r.str("description"),
			Recurrence:      rec,
			Persistence:     r.strOr("persistence", DefaultPersistence),
			PressureContext: r.strOr("pressure_context", DefaultPressureContext),
			Contradictions:  r.strOr("contradictions", DefaultContradictions),
		})
	}
	return patterns, nil
}

// AxisAssignments decodes axis linking output.
func AxisAssignments(raw string) ([]AssignmentDraft, error) {
	records, err := Normalize(raw, models.PhaseAxisLinking)
	if err != nil {
		return nil, err
	}
	drafts := make([]AssignmentDraft, 0, len(records))
	for _, r := range records {
		drafts = append(drafts, AssignmentDraft{
			PatternID:          r.str("pattern_id"),
			PatternDescription: r.str("pattern_description"),
			AxisName:           r.str("axis_name"),
			Justification:      r.str("justification"),
		})
	}
	return drafts, nil
}

// AxisStates decodes axis classification output.
func AxisStates(raw string) ([]models.AxisState, error) {
	records, err := Normalize(raw, models.PhaseAxisClassification)
	if err != nil {
		return nil, err
	}
	states := make([]models.AxisState, 0, len(records))
	for _, r := range records {
		status, _ := models.ParseAxisStatus(r.str("status"))
		states = append(states, models.AxisState{
			AxisName:      r.str("axis_name"),
			Status:        status,
			Value:         r.str("value"),
			Justification: r.str("justification"),
		})
	}
	return states, nil
}

// Tensions decodes tension detection output. An unrecognised severity
// becomes Medium.
func Tensions(raw string) ([]models.Tension, error) {
	records, err := Normalize(raw, models.PhaseTensionDetection)
	if err != nil {
		return nil, err
	}
	tensions := make([]models.Tension, 0, len(records))
	for _, r := range records {
		typ, _ := models.ParseTensionType(r.str("type"))
		sev, ok := models.ParseSeverity(r.str("severity"))
		if !ok {
			sev = models.SeverityMedium
		}
		axes, _ := r.list("axes_involved")
		tensions = append(tensions, models.Tension{
			Description:  r.str("description"),
			Type:         typ,
			AxesInvolved: axes,
			Severity:     sev,
		})
	}
	return tensions, nil
}

// Threshold decodes threshold evaluation output.
func Threshold(raw string) (models.ThresholdEvaluation, error) {
	records, err := Normalize(raw, models.PhaseThresholdEvaluation)
	if err != nil {
		return models.ThresholdEvaluation{}, err
	}
	r := records[0]
	score, _ := r.number("score")
	return models.ThresholdEvaluation{
		Score:     score,
		Status:    r.str("status"),
		Reasoning: r.str("reasoning"),
	}, nil
}

// Archetype decodes archetype assignment output.
func Archetype(raw string) (models.ArchetypeAssignment, error) {
	records, err := Normalize(raw, models.PhaseArchetypeAssignment)
	if err != nil {
		return models.ArchetypeAssignment{}, err
	}
	r := records[0]
	fit, _ := r.number("fit_score")
	traits, _ := r.list("key_traits")
	return models.ArchetypeAssignment{
		ArchetypeName: r.str("archetype_name"),
		Description:   r.str("description"),
		FitScore:      fit,
		KeyTraits:     traits,
	}, nil
}

// str returns a field as trimmed text. Numbers and booleans are formatted;
// anything else yields "".
func (r Record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func (r Record) strOr(key, def string) string {
	if s := r.str(key); s != "" {
		return s
	}
	return def
}

// number reads a numeric field. Numeric strings such as "75" or "75%" are
// accepted; fractions round to the nearest integer.
func (r Record) number(key string) (int, bool) {
	var f float64
	switch v := r[key].(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(v), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Round(f)
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

// list reads a field that should be a list of strings. A single string is
// split on commas.
func (r Record) list(key string) ([]string, bool) {
	switch v := r[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s := Record{"v": item}.str("v")
			if s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		out := []string{}
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	case nil:
		return []string{}, false
	}
	return []string{}, false
}

// String renders a record for log messages.
func (r Record) String() string {
	b, err := json.Marshal(map[string]any(r))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(r))
	}
	return string(b)
}
