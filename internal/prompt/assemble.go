// Package prompt renders case data into the textual context block each
// analysis phase sends to the model, and loads the phase prompt templates.
package prompt

import (
	"strings"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// Template placeholders, one per phase context.
const (
	PlaceholderInputs          = "{inputs_text}"
	PlaceholderPatterns        = "{patterns_text}"
	PlaceholderAxisAssignments = "{axis_assignments_text}"
	PlaceholderAxisStates      = "{axis_states_text}"
	PlaceholderCaseSummary     = "{case_summary_text}"
)

// Placeholder returns the placeholder token a phase's template uses.
func Placeholder(phase models.Phase) string {
	switch phase {
	case models.PhasePatternDetection:
		return PlaceholderInputs
	case models.PhaseAxisLinking:
		return PlaceholderPatterns
	case models.PhaseAxisClassification:
		return PlaceholderAxisAssignments
	case models.PhaseTensionDetection:
		return PlaceholderAxisStates
	default:
		return PlaceholderCaseSummary
	}
}

// Assemble substitutes every occurrence of placeholder in template with the
// context block. The substitution is literal: templates carry JSON examples
// whose braces must survive untouched.
func Assemble(template, block, placeholder string) string {
	return strings.ReplaceAll(template, placeholder, block)
}

// HasPlaceholder reports whether template carries the placeholder of phase.
// A template without it sends no case context to the model.
func HasPlaceholder(template string, phase models.Phase) bool {
	return strings.Contains(template, Placeholder(phase))
}
