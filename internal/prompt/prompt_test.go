package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAssembleLiteral(t *testing.T) {
	tmpl := `Data:
{patterns_text}
Again: {patterns_text}
Example: {"assignments": [{"axis_name": "%s"}]}`

	got := Assemble(tmpl, "- A (Recurrence: High) [id: p1]", PlaceholderPatterns)

	assert.Equal(t, 2, strings.Count(got, "- A (Recurrence: High) [id: p1]"))
	assert.NotContains(t, got, PlaceholderPatterns)
	assert.Contains(t, got, `{"assignments": [{"axis_name": "%s"}]}`)
}

func TestAssembleMissingPlaceholder(t *testing.T) {
	assert.Equal(t, "no slot here", Assemble("no slot here", "ctx", PlaceholderInputs))
}

func TestPlaceholder(t *testing.T) {
	cases := map[models.Phase]string{
		models.PhasePatternDetection:    "{inputs_text}",
		models.PhaseAxisLinking:         "{patterns_text}",
		models.PhaseAxisClassification:  "{axis_assignments_text}",
		models.PhaseTensionDetection:    "{axis_states_text}",
		models.PhaseThresholdEvaluation: "{case_summary_text}",
		models.PhaseArchetypeAssignment: "{case_summary_text}",
	}
	for phase, want := range cases {
		assert.Equal(t, want, Placeholder(phase), phase)
	}
}

func TestInputsBlock(t *testing.T) {
	inputs := []models.Input{
		{Content: "I never say no", InputType: models.InputPhrase, CreatedAt: "2024-01-01T10:00:00.000000Z"},
		{Content: "Stayed late again", InputType: models.InputSituation, CreatedAt: "2024-01-02T10:00:00.000000Z"},
	}
	want := "- [phrase] I never say no (Date: 2024-01-01T10:00:00.000000Z)\n" +
		"- [situation] Stayed late again (Date: 2024-01-02T10:00:00.000000Z)"
	assert.Equal(t, want, InputsBlock(inputs))
	assert.Equal(t, InputsBlock(inputs), InputsBlock(inputs))
	assert.Empty(t, InputsBlock(nil))
}

func TestPatternsBlock(t *testing.T) {
	got := PatternsBlock([]models.Pattern{{ID: "p1", Description: "Avoids conflict", Recurrence: models.RecurrenceHigh}})
	assert.Equal(t, "- Avoids conflict (Recurrence: High) [id: p1]", got)
}

func TestAxisAssignmentsBlock(t *testing.T) {
	id := "p1"
	got := AxisAssignmentsBlock([]models.AxisAssignment{
		{PatternID: &id, PatternDescription: "Avoids conflict", AxisName: "Power", Justification: "yields"},
		{AxisName: "Control", Justification: "orphan"},
	})
	want := "- Axis: Power | Pattern: Avoids conflict | Justification: yields\n" +
		"- Axis: Control | Pattern: Unknown pattern | Justification: orphan"
	assert.Equal(t, want, got)
}

func TestAxisStatesBlock(t *testing.T) {
	got := AxisStatesBlock([]models.AxisState{
		{AxisName: "Power", Value: "Submissive", Status: models.AxisDefined, Justification: "always yields"},
	})
	assert.Equal(t, "- Power: Submissive (Status: Defined)\n  Justification: always yields", got)
}

func TestSummaries(t *testing.T) {
	patterns := []models.Pattern{
		{Description: "Avoids conflict", Recurrence: models.RecurrenceHigh},
		{Description: "Seeks approval", Recurrence: models.RecurrenceLow},
	}
	states := []models.AxisState{{AxisName: "Power", Value: "Low", Status: models.AxisPartial}}
	tensions := []models.Tension{{Description: "Wants control but yields", Severity: models.SeverityMedium}}

	threshold := ThresholdSummary(patterns, states, tensions)
	assert.Equal(t, "PATTERNS:\n"+
		"- Avoids conflict (Recurrence: High)\n"+
		"- Seeks approval (Recurrence: Low)\n\n"+
		"AXES:\n"+
		"- Power: Low (Partial)\n\n"+
		"TENSIONS:\n"+
		"- Wants control but yields (Severity: Medium)", threshold)

	ev := models.ThresholdEvaluation{Score: 72, Status: "Crossed", Reasoning: "Consistent"}
	archetype := ArchetypeSummary(patterns, states, tensions, ev)
	assert.Equal(t, "PATTERNS:\n"+
		"- Avoids conflict\n"+
		"- Seeks approval\n\n"+
		"AXES:\n"+
		"- Power: Low (Partial)\n\n"+
		"TENSIONS:\n"+
		"- Wants control but yields\n\n"+
		"THRESHOLD EVALUATION:\nScore: 72\nStatus: Crossed\nReasoning: Consistent", archetype)
}

func TestEmbeddedTemplates(t *testing.T) {
	for _, phase := range models.Phases {
		tmpl, err := EmbeddedLoader{}.Load(phase)
		require.NoError(t, err, phase)
		assert.Contains(t, tmpl, Placeholder(phase), phase)
	}

	_, err := EmbeddedLoader{}.Load(models.Phase("nope"))
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "axis_linking.md"), []byte("custom {patterns_text}"), 0o644))

	tmpl, err := DirLoader{Dir: dir}.Load(models.PhaseAxisLinking)
	require.NoError(t, err)
	assert.Equal(t, "custom {patterns_text}", tmpl)

	_, err = DirLoader{Dir: dir}.Load(models.PhasePatternDetection)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestChainFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "axis_linking.md"), []byte("override"), 0o644))
	loader := NewLoader(dir)

	tmpl, err := loader.Load(models.PhaseAxisLinking)
	require.NoError(t, err)
	assert.Equal(t, "override", tmpl)

	tmpl, err = loader.Load(models.PhasePatternDetection)
	require.NoError(t, err)
	assert.Contains(t, tmpl, PlaceholderInputs)

	_, err = Chain(DirLoader{Dir: dir}).Load(models.PhaseTensionDetection)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestHasPlaceholder(t *testing.T) {
	assert.True(t, HasPlaceholder("Context:\n{axis_states_text}", models.PhaseTensionDetection))
	assert.False(t, HasPlaceholder("Context:\n{axis_states_text}", models.PhaseArchetypeAssignment))
	assert.False(t, HasPlaceholder("override", models.PhaseAxisLinking))
}
