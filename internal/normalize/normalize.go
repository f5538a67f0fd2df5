// Package normalize turns free-form model output into validated phase
// records. The model is untrusted: it may wrap JSON in prose, wrap the list
// in an object, return one object where a list is expected, or omit fields.
package normalize

import (
	"errors"
	"fmt"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

var (
	// ErrMalformedResponse means no JSON payload could be found.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrInvalidShape means the payload is not an object or a list of objects.
	ErrInvalidShape = errors.New("invalid response shape")
	// ErrInvalidRecord means a single-record phase got a record missing
	// required fields.
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is one decoded JSON object from a model response.
type Record map[string]any

// wrapperKeys maps each phase to the key its list or object may be wrapped in.
var wrapperKeys = map[models.Phase]string{
	models.PhasePatternDetection:    "patterns",
	models.PhaseAxisLinking:         "assignments",
	models.PhaseAxisClassification:  "axis_states",
	models.PhaseTensionDetection:    "tensions",
	models.PhaseThresholdEvaluation: "evaluation",
	models.PhaseArchetypeAssignment: "archetype",
}

// Singleton reports whether a phase produces exactly one record.
func Singleton(phase models.Phase) bool {
	return phase == models.PhaseThresholdEvaluation || phase == models.PhaseArchetypeAssignment
}

// Normalize extracts and validates the records of a phase from raw model
// output. Multi-record phases silently drop entries that fail validation;
// single-record phases return exactly one record or ErrInvalidRecord.
func Normalize(raw string, phase models.Phase) ([]Record, error) {
	key, ok := wrapperKeys[phase]
	if !ok {
		return nil, fmt.Errorf("normalize: unknown phase %q", phase)
	}
	payload, err := Extract(raw)
	if err != nil {
		return nil, err
	}

	items, err := unwrap(payload, key)
	if err != nil {
		return nil, err
	}

	if Singleton(phase) {
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: %s: empty list", ErrInvalidRecord, phase)
		}
		rec, ok := items[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: expected an object, got %T", ErrInvalidShape, phase, items[0])
		}
		if err := validate(phase, rec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, phase, err)
		}
		return []Record{rec}, nil
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if validate(phase, rec) != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// unwrap resolves the payload into a list of candidate records.
func unwrap(payload any, key string) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		inner, ok := v[key]
		if !ok {
			return []any{v}, nil
		}
		switch in := inner.(type) {
		case []any:
			return in, nil
		case map[string]any:
			return []any{in}, nil
		default:
			return nil, fmt.Errorf("%w: %q holds %T", ErrInvalidShape, key, inner)
		}
	default:
		return nil, fmt.Errorf("%w: top-level %T", ErrInvalidShape, payload)
	}
}

// validate checks the required fields of one record.
func validate(phase models.Phase, r Record) error {
	switch phase {
	case models.PhasePatternDetection:
		return requireFields(r, "description")
	case models.PhaseAxisLinking:
		if err := requireFields(r, "axis_name"); err != nil {
			return err
		}
		if r.str("pattern_id") == "" && r.str("pattern_description") == "" {
			return errors.New("missing pattern_id or pattern_description")
		}
	case models.PhaseAxisClassification:
		if err := requireFields(r, "axis_name"); err != nil {
			return err
		}
		if _, ok := models.ParseAxisStatus(r.str("status")); !ok {
			return fmt.Errorf("unrecognised status %q", r.str("status"))
		}
	case models.PhaseTensionDetection:
		if err := requireFields(r, "description"); err != nil {
			return err
		}
		if _, ok := models.ParseTensionType(r.str("type")); !ok {
			return fmt.Errorf("unrecognised type %q", r.str("type"))
		}
	case models.PhaseThresholdEvaluation:
		if _, ok := r.number("score"); !ok {
			return errors.New("score is missing or not numeric")
		}
		return requireFields(r, "status", "reasoning")
	case models.PhaseArchetypeAssignment:
		if err := requireFields(r, "archetype_name", "description"); err != nil {
			return err
		}
		if _, ok := r.number("fit_score"); !ok {
			return errors.New("fit_score is missing or not numeric")
		}
		if _, ok := r.list("key_traits"); !ok {
			return errors.New("key_traits is missing")
		}
	}
	return nil
}

func requireFields(r Record, fields ...string) error {
	for _, f := range fields {
		if r.str(f) == "" {
			return fmt.Errorf("missing %s", f)
		}
	}
	return nil
}
