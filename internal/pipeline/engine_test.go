package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegoturueno/provokers-tool/internal/llm"
	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/normalize"
	"github.com/diegoturueno/provokers-tool/internal/prompt"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// scripted replies with queued responses and records every prompt.
type scripted struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (s *scripted) Generate(_ context.Context, systemPrompt string, format llm.Format) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, systemPrompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("%w: no scripted response left", llm.ErrTransport)
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return out, nil
}

func (s *scripted) push(responses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, responses...)
}

func (s *scripted) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type fixture struct {
	store  *storage.Store
	engine *Engine
	gen    *scripted
	caseID string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "cases.db"), storage.DriverNcruces)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(ctx))

	c, err := store.CreateCase(ctx, "case-under-test", "")
	require.NoError(t, err)

	gen := &scripted{}
	router := llm.NewRouter("fake")
	router.Register("fake", gen)

	return &fixture{
		store:  store,
		engine: New(store, prompt.EmbeddedLoader{}, router),
		gen:    gen,
		caseID: c.ID,
	}
}

func (f *fixture) addInputs(t *testing.T, contents ...string) {
	t.Helper()
	for _, c := range contents {
		_, err := f.store.AddInput(context.Background(), f.caseID, c, models.InputPhrase, nil)
		require.NoError(t, err)
	}
}

func (f *fixture) state(t *testing.T) models.CaseState {
	t.Helper()
	st, err := f.store.CaseState(context.Background(), f.caseID)
	require.NoError(t, err)
	return st
}

func (f *fixture) status(t *testing.T) string {
	t.Helper()
	c, err := f.store.GetCase(context.Background(), f.caseID)
	require.NoError(t, err)
	return c.Status
}

func requireOK(t *testing.T, res *Result) {
	t.Helper()
	if res.Err != nil {
		t.Fatalf("%s failed: %s", res.Phase, res.Err.Error())
	}
}

const (
	patternsJSON    = `{"patterns":[{"description":"Avoids open conflict","recurrence":"High","persistence":"Years","pressure_context":"Meetings","contradictions":"None"},{"description":"Seeks approval from peers","recurrence":"Medium"}]}`
	assignmentsJSON = `{"assignments":[{"pattern_description":"avoids open conflict","axis_name":"Power","justification":"yields"},{"pattern_description":"Seeks approval","axis_name":"Belonging","justification":"needs group"}]}`
	statesJSON      = `{"axis_states":[{"axis_name":"Power","status":"Defined","value":"Submissive","justification":"always yields"},{"axis_name":"Belonging","status":"Partial","value":"Dependent","justification":"peer driven"}]}`
	tensionsJSON    = `{"tensions":[{"description":"Wants belonging but avoids conflict","type":"Contradiction","axes_involved":["Power","Belonging"],"severity":"High"}]}`
	thresholdJSON   = `{"evaluation":{"score":78,"status":"Crossed","reasoning":"Consistent picture"}}`
	archetypeJSON   = `{"archetype":{"archetype_name":"The Peacekeeper","description":"Keeps harmony at own cost","fit_score":84,"key_traits":["conflict averse","loyal"]}}`
)

func TestPatternDetectionRequiresInputs(t *testing.T) {
	f := setup(t)
	res := f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{})

	require.NotNil(t, res.Err)
	assert.Equal(t, KindPreconditionFailed, res.Err.Kind)
	assert.Contains(t, res.Err.Message, "inputs")
	assert.Zero(t, f.state(t).Patterns)
	assert.Empty(t, f.gen.prompts, "model must not be called")
	assert.Equal(t, models.CaseStatusOpen, f.status(t))
}

func TestPatternDetectionPersists(t *testing.T) {
	f := setup(t)
	f.addInputs(t, "I never say no", "I stayed late again", "Whatever the team wants")
	f.gen.push(`{"patterns":[{"description":"A","recurrence":"High","persistence":"p","pressure_context":"c","contradictions":"n"}]}`)

	res := f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{})
	requireOK(t, res)
	require.Len(t, res.Patterns, 1)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, models.RecurrenceHigh, res.Patterns[0].Recurrence)

	patterns, err := f.store.ListPatterns(context.Background(), f.caseID)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "A", patterns[0].Description)
	assert.Equal(t, models.RecurrenceHigh, patterns[0].Recurrence)
	assert.Equal(t, string(models.PhasePatternDetection), f.status(t))

	p := f.gen.lastPrompt()
	assert.Contains(t, p, "- [phrase] I never say no (Date: ")
	assert.Contains(t, p, "- [phrase] Whatever the team wants (Date: ")
	assert.NotContains(t, p, prompt.PlaceholderInputs)
}

func TestPatternDetectionIsAdditive(t *testing.T) {
	f := setup(t)
	f.addInputs(t, "one")
	f.gen.push(`[{"description":"A"}]`, `[{"description":"A"}]`)

	requireOK(t, f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{}))
	requireOK(t, f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{}))
	assert.Equal(t, 2, f.state(t).Patterns)
}

func TestLinkAxesResolvesPatterns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addInputs(t, "one")
	f.gen.push(patternsJSON)
	requireOK(t, f.engine.DetectPatterns(ctx, f.caseID, RunOptions{}))

	patterns, err := f.store.ListPatterns(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	f.gen.push(fmt.Sprintf(`{"assignments":[
		{"pattern_id":%q,"axis_name":"Belonging","justification":"by id"},
		{"pattern_description":"AVOIDS OPEN CONFLICT","axis_name":"Power","justification":"exact"},
		{"pattern_description":"approval","axis_name":"Recognition","justification":"substring"},
		{"pattern_description":"Something never detected","axis_name":"Control","justification":"orphan"}
	]}`, patterns[1].ID))

	res := f.engine.LinkAxes(ctx, f.caseID, RunOptions{})
	requireOK(t, res)
	require.Len(t, res.AxisAssignments, 4)
	assert.Contains(t, f.gen.lastPrompt(), fmt.Sprintf("[id: %s]", patterns[0].ID))

	list, err := f.store.ListAxisAssignments(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, list, 4)

	require.NotNil(t, list[0].PatternID)
	assert.Equal(t, patterns[1].ID, *list[0].PatternID)
	require.NotNil(t, list[1].PatternID)
	assert.Equal(t, patterns[0].ID, *list[1].PatternID)
	require.NotNil(t, list[2].PatternID)
	assert.Equal(t, patterns[1].ID, *list[2].PatternID)
	assert.Nil(t, list[3].PatternID, "unmatched assignment keeps a null reference")
	assert.Equal(t, "Control", list[3].AxisName)
}

func TestResolvePatternPrefersExact(t *testing.T) {
	patterns := []models.Pattern{
		{ID: "p1", Description: "Avoids conflict at work"},
		{ID: "p2", Description: "Avoids conflict"},
	}
	got := resolvePattern(patterns, draft("", "avoids conflict"))
	require.NotNil(t, got)
	assert.Equal(t, "p2", got.ID)

	got = resolvePattern(patterns, draft("missing-id", "at work"))
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)

	assert.Nil(t, resolvePattern(patterns, draft("missing-id", "")))
	assert.Nil(t, resolvePattern(patterns, draft("", "unrelated")))
}

func TestPhasesRequireUpstream(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, phase := range models.Phases {
		res := f.engine.Run(ctx, phase, f.caseID, RunOptions{})
		require.NotNil(t, res.Err, phase)
		assert.Equal(t, KindPreconditionFailed, res.Err.Kind, phase)
		assert.Equal(t, phase, res.Err.Phase)
	}
	assert.Empty(t, f.gen.prompts)
}

func TestFullPipelineAndReruns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addInputs(t, "I never say no", "Whatever the team wants")

	f.gen.push(patternsJSON, assignmentsJSON, statesJSON, tensionsJSON, thresholdJSON, archetypeJSON)
	for _, phase := range models.Phases {
		requireOK(t, f.engine.Run(ctx, phase, f.caseID, RunOptions{}))
		assert.Equal(t, string(phase), f.status(t))
	}

	st := f.state(t)
	assert.Equal(t, models.CaseState{
		Inputs: 2, Patterns: 2, AxisAssignments: 2, AxisStates: 2, Tensions: 1,
		HasThreshold: true, HasArchetype: true, LastPhase: models.PhaseArchetypeAssignment,
	}, st)
	_, done := NextPhase(st)
	assert.False(t, done)

	// Classification, tension, threshold and archetype reruns replace.
	f.gen.push(
		`[{"axis_name":"Power","status":"Tension","value":"Ambivalent","justification":"second"}]`,
		`{"tensions":[]}`,
		`{"score":"40","status":"Not crossed","reasoning":"second"}`,
		`{"archetype_name":"The Drifter","description":"d","fit_score":51,"key_traits":"restless, vague"}`,
	)
	for _, phase := range models.Phases[2:] {
		requireOK(t, f.engine.Run(ctx, phase, f.caseID, RunOptions{}))
	}

	states, err := f.store.ListAxisStates(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, s := range states {
		if s.AxisName == "Power" {
			assert.Equal(t, "Ambivalent", s.Value)
			assert.Equal(t, models.AxisTension, s.Status)
		}
	}

	tensions, err := f.store.ListTensions(ctx, f.caseID)
	require.NoError(t, err)
	assert.Empty(t, tensions)

	ev, err := f.store.GetThresholdEvaluation(ctx, f.caseID)
	require.NoError(t, err)
	assert.Equal(t, 40, ev.Score)

	arch, err := f.store.GetArchetypeAssignment(ctx, f.caseID)
	require.NoError(t, err)
	assert.Equal(t, "The Drifter", arch.ArchetypeName)
	assert.Equal(t, []string{"restless", "vague"}, arch.KeyTraits)

	summary := f.gen.lastPrompt()
	assert.Contains(t, summary, "THRESHOLD EVALUATION:\nScore: 40")
	assert.Contains(t, summary, "- Power: Ambivalent (Tension)")
}

func TestTensionRerunIgnoresBracketedPreamble(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addInputs(t, "one")
	f.gen.push(patternsJSON, assignmentsJSON, statesJSON, tensionsJSON)
	for _, phase := range models.Phases[:4] {
		requireOK(t, f.engine.Run(ctx, phase, f.caseID, RunOptions{}))
	}

	f.gen.push("The axes [\"Power\", \"Belonging\"] collide:\n```json\n" +
		`{"tensions":[{"description":"Yields to keep the group close","type":"Reinforcement","axes_involved":["Power","Belonging"],"severity":"Low"}]}` +
		"\n```")
	res := f.engine.DetectTensions(ctx, f.caseID, RunOptions{})
	requireOK(t, res)

	tensions, err := f.store.ListTensions(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, tensions, 1)
	assert.Equal(t, "Yields to keep the group close", tensions[0].Description)
	assert.Equal(t, models.TensionReinforcement, tensions[0].Type)
}

func TestEmptyTensionRunAdvances(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addInputs(t, "one")
	f.gen.push(patternsJSON, assignmentsJSON, statesJSON, `{"tensions":[]}`)
	for _, phase := range models.Phases[:4] {
		requireOK(t, f.engine.Run(ctx, phase, f.caseID, RunOptions{}))
	}

	st := f.state(t)
	assert.Zero(t, st.Tensions)
	assert.Equal(t, models.PhaseTensionDetection, st.LastPhase)
	next, ok := NextPhase(st)
	assert.True(t, ok)
	assert.Equal(t, models.PhaseThresholdEvaluation, next)
}

func TestClassifyAxesSameAxisTwiceInOneResponse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addInputs(t, "one")
	f.gen.push(patternsJSON, assignmentsJSON,
		`[{"axis_name":"Power","status":"Partial","value":"first"},{"axis_name":"Power","status":"Defined","value":"second"}]`)
	for _, phase := range models.Phases[:3] {
		requireOK(t, f.engine.Run(ctx, phase, f.caseID, RunOptions{}))
	}

	states, err := f.store.ListAxisStates(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "second", states[0].Value)
}

func TestModelFailureLeavesStorageUntouched(t *testing.T) {
	f := setup(t)
	f.addInputs(t, "one")
	f.gen.err = fmt.Errorf("openai: %w: status 401: bad key", llm.ErrAuth)

	res := f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindModelInvocationFailed, res.Err.Kind)
	assert.Equal(t, "openai: model authentication error: status 401: bad key", res.Err.Message)
	assert.True(t, errors.Is(res.Err, llm.ErrAuth))
	assert.Zero(t, f.state(t).Patterns)
	assert.Equal(t, models.CaseStatusOpen, f.status(t))
}

func TestResponseErrors(t *testing.T) {
	tests := []struct {
		name  string
		phase models.Phase
		raw   string
		kind  ErrorKind
	}{
		{"prose only", models.PhasePatternDetection, "I could not find any patterns, sorry.", KindMalformedResponse},
		{"scalar", models.PhasePatternDetection, "42", KindInvalidShape},
		{"incomplete threshold", models.PhaseThresholdEvaluation, `{"evaluation":{"score":70}}`, KindInvalidShape},
		{"score out of range", models.PhaseThresholdEvaluation, `{"score":1e30,"status":"Crossed","reasoning":"r"}`, KindInvalidShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			f.addInputs(t, "one")
			if tt.phase == models.PhaseThresholdEvaluation {
				_, err := f.store.UpsertAxisState(ctx, models.AxisState{CaseID: f.caseID, AxisName: "Power", Status: models.AxisDefined})
				require.NoError(t, err)
			}
			before := f.state(t)
			f.gen.push(tt.raw)

			res := f.engine.Run(ctx, tt.phase, f.caseID, RunOptions{})
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.kind, res.Err.Kind)
			assert.Equal(t, before, f.state(t))
		})
	}
}

func TestTemplateNotFound(t *testing.T) {
	f := setup(t)
	f.addInputs(t, "one")
	f.engine.templates = prompt.DirLoader{Dir: t.TempDir()}

	res := f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindTemplateNotFound, res.Err.Kind)
}

func TestRunValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.engine.Run(ctx, models.PhasePatternDetection, "no-such-case", RunOptions{})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindNotFound, res.Err.Kind)

	res = f.engine.Run(ctx, models.PhasePatternDetection, "", RunOptions{})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindValidation, res.Err.Kind)

	res = f.engine.Run(ctx, models.Phase("phase_nine"), f.caseID, RunOptions{})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindValidation, res.Err.Kind)

	f.addInputs(t, "one")
	res = f.engine.Run(ctx, models.PhasePatternDetection, f.caseID, RunOptions{Provider: "nonexistent"})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindModelInvocationFailed, res.Err.Kind)
	assert.True(t, errors.Is(res.Err, llm.ErrUnknownProvider))
}

func TestRunRecoversPanic(t *testing.T) {
	f := setup(t)
	f.addInputs(t, "one")
	router := llm.NewRouter("boom")
	router.Register("boom", llm.GeneratorFunc(func(context.Context, string, llm.Format) (string, error) {
		panic("generator exploded")
	}))
	f.engine.models = router

	res := f.engine.DetectPatterns(context.Background(), f.caseID, RunOptions{})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindInternal, res.Err.Kind)
	assert.Contains(t, res.Err.Message, "generator exploded")
	assert.Empty(t, res.Patterns)
}

func draft(id, desc string) normalize.AssignmentDraft {
	return normalize.AssignmentDraft{PatternID: id, PatternDescription: desc}
}
