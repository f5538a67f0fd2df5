package prompt

import (
	"fmt"
	"strings"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// unknownPattern stands in for an assignment whose pattern could not be
// resolved.
const unknownPattern = "Unknown pattern"

// InputsBlock renders the pattern detection context.
func InputsBlock(inputs []models.Input) string {
	lines := make([]string, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, fmt.Sprintf("- [%s] %s (Date: %s)", in.InputType, in.Content, in.CreatedAt))
	}
	return strings.Join(lines, "\n")
}

// PatternsBlock renders the axis linking context. The pattern id is included
// so the model can reference it back.
func PatternsBlock(patterns []models.Pattern) string {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lines = append(lines, fmt.Sprintf("- %s (Recurrence: %s) [id: %s]", p.Description, p.Recurrence, p.ID))
	}
	return strings.Join(lines, "\n")
}

// AxisAssignmentsBlock renders the axis classification context.
func AxisAssignmentsBlock(assignments []models.AxisAssignment) string {
	lines := make([]string, 0, len(assignments))
	for _, a := range assignments {
		desc := a.PatternDescription
		if desc == "" {
			desc = unknownPattern
		}
		lines = append(lines, fmt.Sprintf("- Axis: %s | Pattern: %s | Justification: %s", a.AxisName, desc, a.Justification))
	}
	return strings.Join(lines, "\n")
}

// AxisStatesBlock renders the tension detection context.
func AxisStatesBlock(states []models.AxisState) string {
	lines := make([]string, 0, len(states))
	for _, s := range states {
		lines = append(lines, fmt.Sprintf("- %s: %s (Status: %s)\n  Justification: %s", s.AxisName, s.Value, s.Status, s.Justification))
	}
	return strings.Join(lines, "\n")
}

// ThresholdSummary renders the threshold evaluation context.
func ThresholdSummary(patterns []models.Pattern, states []models.AxisState, tensions []models.Tension) string {
	var b strings.Builder
	b.WriteString("PATTERNS:\n")
	for i, p := range patterns {
		writeLine(&b, i, fmt.Sprintf("- %s (Recurrence: %s)", p.Description, p.Recurrence))
	}
	writeAxes(&b, states)
	b.WriteString("\n\nTENSIONS:\n")
	for i, t := range tensions {
		writeLine(&b, i, fmt.Sprintf("- %s (Severity: %s)", t.Description, t.Severity))
	}
	return b.String()
}

// ArchetypeSummary renders the archetype assignment context.
func ArchetypeSummary(patterns []models.Pattern, states []models.AxisState, tensions []models.Tension, ev models.ThresholdEvaluation) string {
	var b strings.Builder
	b.WriteString("PATTERNS:\n")
	for i, p := range patterns {
		writeLine(&b, i, "- "+p.Description)
	}
	writeAxes(&b, states)
	b.WriteString("\n\nTENSIONS:\n")
	for i, t := range tensions {
		writeLine(&b, i, "- "+t.Description)
	}
	fmt.Fprintf(&b, "\n\nTHRESHOLD EVALUATION:\nScore: %d\nStatus: %s\nReasoning: %s", ev.Score, ev.Status, ev.Reasoning)
	return b.String()
}

func writeAxes(b *strings.Builder, states []models.AxisState) {
	b.WriteString("\n\nAXES:\n")
	for i, s := range states {
		writeLine(b, i, fmt.Sprintf("- %s: %s (%s)", s.AxisName, s.Value, s.Status))
	}
}

// writeLine joins lines with newlines without a trailing separator.
func writeLine(b *strings.Builder, i int, line string) {
	if i > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(line)
}
