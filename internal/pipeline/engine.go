// Package pipeline runs the analysis phases against a case: it loads the
// upstream records, assembles the phase prompt, calls the model, normalizes
// the response and persists the result in one transaction.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/llm"
	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/prompt"
	"github.com/diegoturueno/provokers-tool/internal/storage"
	"github.com/diegoturueno/provokers-tool/internal/telemetry"
)

const scope = "github.com/diegoturueno/provokers-tool/pipeline"

// Resolver picks the model provider for a run. An empty name selects the
// default provider.
type Resolver interface {
	Resolve(name string) (llm.Generator, error)
}

// RunOptions tunes a single phase run.
type RunOptions struct {
	// Provider names the model provider; empty uses the default.
	Provider string
}

// Result is the outcome of a phase run: either the saved records or Err.
type Result struct {
	Phase           models.Phase                `json:"phase"`
	CaseID          string                      `json:"case_id"`
	Count           int                         `json:"count"`
	Patterns        []models.Pattern            `json:"patterns,omitempty"`
	AxisAssignments []models.AxisAssignment     `json:"axis_assignments,omitempty"`
	AxisStates      []models.AxisState          `json:"axis_states,omitempty"`
	Tensions        []models.Tension            `json:"tensions,omitempty"`
	Threshold       *models.ThresholdEvaluation `json:"threshold,omitempty"`
	Archetype       *models.ArchetypeAssignment `json:"archetype,omitempty"`
	Err             *Error                      `json:"error,omitempty"`
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Engine runs phases. It is safe for concurrent use across cases; runs
// against the same case are not serialized.
type Engine struct {
	store     *storage.Store
	templates prompt.Loader
	models    Resolver
	logger    *zap.Logger
	tracer    trace.Tracer
	runs      metric.Int64Counter
	duration  metric.Float64Histogram
	phases    map[models.Phase]phaseFunc
}

type phaseFunc func(ctx context.Context, run *phaseRun) error

// phaseRun carries the state of one invocation.
type phaseRun struct {
	phase  models.Phase
	caseID string
	gen    llm.Generator
	result *Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine.
func New(store *storage.Store, templates prompt.Loader, resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		templates: templates,
		models:    resolver,
		logger:    zap.NewNop(),
		tracer:    telemetry.Tracer(scope),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("pipeline")

	m := telemetry.Meter(scope)
	e.runs, _ = m.Int64Counter("provokers.phase.runs",
		metric.WithDescription("Phase runs by phase and outcome"),
		metric.WithUnit("{run}"),
	)
	e.duration, _ = m.Float64Histogram("provokers.phase.duration",
		metric.WithDescription("Phase run duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	e.phases = map[models.Phase]phaseFunc{
		models.PhasePatternDetection:    e.detectPatterns,
		models.PhaseAxisLinking:         e.linkAxes,
		models.PhaseAxisClassification:  e.classifyAxes,
		models.PhaseTensionDetection:    e.detectTensions,
		models.PhaseThresholdEvaluation: e.evaluateThreshold,
		models.PhaseArchetypeAssignment: e.assignArchetype,
	}
	return e
}

// Run executes one phase for a case. It never returns a Go error or
// panics; failures are reported in Result.Err and leave storage untouched.
func (e *Engine) Run(ctx context.Context, phase models.Phase, caseID string, opts RunOptions) (res *Result) {
	res = &Result{Phase: phase, CaseID: caseID}
	ctx, span := e.tracer.Start(ctx, "pipeline."+string(phase))
	defer span.End()
	span.SetAttributes(
		attribute.String("provokers.phase", string(phase)),
		attribute.String("provokers.case_id", caseID),
	)

	log := e.logger.With(zap.String("phase", string(phase)), zap.String("case_id", caseID))
	start := time.Now()
	log.Info("phase started", zap.String("provider", opts.Provider))

	defer func() {
		if r := recover(); r != nil {
			log.Error("phase panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			*res = Result{Phase: phase, CaseID: caseID, Err: &Error{
				Kind:    KindInternal,
				Phase:   phase,
				Message: fmt.Sprintf("panic: %v", r),
			}}
		}
		e.record(ctx, span, log, res, time.Since(start))
	}()

	if err := e.run(ctx, phase, caseID, opts, res); err != nil {
		res.Err = asError(phase, err)
	}
	return res
}

func (e *Engine) run(ctx context.Context, phase models.Phase, caseID string, opts RunOptions, res *Result) error {
	fn, ok := e.phases[phase]
	if !ok {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown phase %q", phase)}
	}
	if caseID == "" {
		return &Error{Kind: KindValidation, Message: "case id is required"}
	}
	if _, err := e.store.GetCase(ctx, caseID); err != nil {
		return err
	}
	gen, err := e.models.Resolve(opts.Provider)
	if err != nil {
		return modelError(phase, err)
	}
	return fn(ctx, &phaseRun{phase: phase, caseID: caseID, gen: gen, result: res})
}

// record logs, traces and counts the outcome of a run.
func (e *Engine) record(ctx context.Context, span trace.Span, log *zap.Logger, res *Result, elapsed time.Duration) {
	outcome := "ok"
	if res.Err != nil {
		outcome = string(res.Err.Kind)
		span.SetStatus(codes.Error, res.Err.Message)
		log.Warn("phase failed",
			zap.String("kind", string(res.Err.Kind)),
			zap.String("error", res.Err.Message),
			zap.Duration("elapsed", elapsed),
		)
	} else {
		span.SetAttributes(attribute.Int("provokers.phase.records", res.Count))
		log.Info("phase finished", zap.Int("records", res.Count), zap.Duration("elapsed", elapsed))
	}

	attrs := metric.WithAttributes(
		attribute.String("phase", string(res.Phase)),
		attribute.String("outcome", outcome),
	)
	if e.runs != nil {
		e.runs.Add(ctx, 1, attrs)
	}
	if e.duration != nil {
		e.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}

// generate loads and assembles the phase prompt and calls the model.
func (e *Engine) generate(ctx context.Context, run *phaseRun, block string) (string, error) {
	tmpl, err := e.templates.Load(run.phase)
	if err != nil {
		return "", err
	}
	systemPrompt := prompt.Assemble(tmpl, block, prompt.Placeholder(run.phase))
	raw, err := run.gen.Generate(ctx, systemPrompt, llm.FormatJSON)
	if err != nil {
		return "", modelError(run.phase, err)
	}
	return raw, nil
}

// persist runs fn and the case status update in one transaction.
func (e *Engine) persist(ctx context.Context, run *phaseRun, fn func(tx *storage.Store) error) error {
	return e.store.WithTx(ctx, func(tx *storage.Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		return tx.UpdateCaseStatus(ctx, run.caseID, string(run.phase))
	})
}

// DetectPatterns runs pattern detection.
func (e *Engine) DetectPatterns(ctx context.Context, caseID string, opts RunOptions) *Result {
	return e.Run(ctx, models.PhasePatternDetection, caseID, opts)
}

// LinkAxes runs axis linking.
func (e *Engine) LinkAxes(ctx context.Context, caseID string, opts RunOptions) *Result {
	return e.Run(ctx, models.PhaseAxisLinking, caseID, opts)
}

// ClassifyAxes runs axis classification.
func (e *Engine) ClassifyAxes(ctx context.Context, caseID string, opts RunOptions) *Result {
	return e.Run(ctx, models.PhaseAxisClassification, caseID, opts)
}

// DetectTensions runs tension detection.
func (e *Engine) DetectTensions(ctx context.Context, caseID string, opts RunOptions) *Result {
	return e.Run(ctx, models.PhaseTensionDetection, caseID, opts)
}

// EvaluateThreshold runs threshold evaluation.
func (e *Engine) EvaluateThreshold(ctx context.Context, caseID string, opts RunOptions) *Result {
	return e.Run(ctx, models.PhaseThresholdEvaluation, caseID, opts)
}

// AssignArchetype runs archetype assignment.
func (e *Engine) AssignArchetype(ctx context.Context, caseID string, opts RunOptions) *Result {
	return e.Run(ctx, models.PhaseArchetypeAssignment, caseID, opts)
}
