package models

import (
	"fmt"
	"strings"
)

// Phase identifies one stage of the analysis pipeline.
type Phase string

const (
	PhasePatternDetection    Phase = "pattern_detection"
	PhaseAxisLinking         Phase = "axis_linking"
	PhaseAxisClassification  Phase = "axis_classification"
	PhaseTensionDetection    Phase = "tension_detection"
	PhaseThresholdEvaluation Phase = "threshold_evaluation"
	PhaseArchetypeAssignment Phase = "archetype_assignment"
)

// Phases lists every phase in pipeline order.
var Phases = []Phase{
	PhasePatternDetection,
	PhaseAxisLinking,
	PhaseAxisClassification,
	PhaseTensionDetection,
	PhaseThresholdEvaluation,
	PhaseArchetypeAssignment,
}

// ParsePhase accepts a phase id, with dashes or underscores.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Phases {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// InputType classifies the kind of text an input holds.
type InputType string

const (
	InputPhrase    InputType = "phrase"
	InputSpeech    InputType = "speech"
	InputNarrative InputType = "narrative"
	InputSituation InputType = "situation"
)

// ParseInputType accepts the English ids and their Spanish labels. An empty
// string defaults to phrase.
func ParseInputType(s string) (InputType, error) {
	switch fold(s) {
	case "", "phrase", "frase":
		return InputPhrase, nil
	case "speech", "discurso":
		return InputSpeech, nil
	case "narrative", "narrativa", "relato":
		return InputNarrative, nil
	case "situation", "situacion":
		return InputSituation, nil
	}
	return "", fmt.Errorf("unknown input type %q", s)
}

// Recurrence grades how often a pattern shows up.
type Recurrence string

const (
	RecurrenceHigh   Recurrence = "High"
	RecurrenceMedium Recurrence = "Medium"
	RecurrenceLow    Recurrence = "Low"
)

// ParseRecurrence maps model output onto a Recurrence.
func ParseRecurrence(s string) (Recurrence, bool) {
	switch fold(s) {
	case "high", "alta", "alto":
		return RecurrenceHigh, true
	case "medium", "media", "medio", "moderate", "moderada":
		return RecurrenceMedium, true
	case "low", "baja", "bajo":
		return RecurrenceLow, true
	}
	return "", false
}

// Severity grades a tension.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ParseSeverity maps model output onto a Severity.
func ParseSeverity(s string) (Severity, bool) {
	r, ok := ParseRecurrence(s)
	return Severity(r), ok
}

// AxisStatus is the classification outcome for one axis.
type AxisStatus string

const (
	AxisDefined   AxisStatus = "Defined"
	AxisPartial   AxisStatus = "Partial"
	AxisUndefined AxisStatus = "Undefined"
	AxisTension   AxisStatus = "Tension"
)

// ParseAxisStatus maps model output onto an AxisStatus.
func ParseAxisStatus(s string) (AxisStatus, bool) {
	switch fold(s) {
	case "defined", "definido", "definida":
		return AxisDefined, true
	case "partial", "parcial":
		return AxisPartial, true
	case "undefined", "indefinido", "indefinida", "no definido":
		return AxisUndefined, true
	case "tension":
		return AxisTension, true
	}
	return "", false
}

// TensionType is the nature of a tension between axes.
type TensionType string

const (
	TensionContradiction TensionType = "Contradiction"
	TensionReinforcement TensionType = "Reinforcement"
	TensionParadox       TensionType = "Paradox"
)

// ParseTensionType maps model output onto a TensionType.
func ParseTensionType(s string) (TensionType, bool) {
	switch fold(s) {
	case "contradiction", "contradiccion":
		return TensionContradiction, true
	case "reinforcement", "refuerzo":
		return TensionReinforcement, true
	case "paradox", "paradoja":
		return TensionParadox, true
	}
	return "", false
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

func fold(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}
