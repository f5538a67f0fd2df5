package llm

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/telemetry"
)

const scope = "github.com/diegoturueno/provokers-tool/llm"

var llmMetrics struct {
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

var llmMetricsOnce sync.Once

func initLLMMetrics() {
	m := telemetry.Meter(scope)
	llmMetrics.duration, _ = m.Float64Histogram("provokers.llm.duration",
		metric.WithDescription("Model call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	llmMetrics.calls, _ = m.Int64Counter("provokers.llm.calls",
		metric.WithDescription("Model calls by provider and outcome"),
		metric.WithUnit("{call}"),
	)
}

// Instrument wraps g with a span, call metrics and a debug log line.
func Instrument(g Generator, provider string, logger *zap.Logger) Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{next: g, provider: provider, logger: logger.Named("llm")}
}

type instrumented struct {
	next     Generator
	provider string
	logger   *zap.Logger
}

func (i *instrumented) Generate(ctx context.Context, systemPrompt string, format Format) (string, error) {
	llmMetricsOnce.Do(initLLMMetrics)

	ctx, span := telemetry.Tracer(scope).Start(ctx, "llm.generate")
	defer span.End()
	attrs := []attribute.KeyValue{
		attribute.String("provokers.llm.provider", i.provider),
		attribute.String("provokers.llm.format", string(format)),
	}
	span.SetAttributes(attrs...)
	span.SetAttributes(attribute.Int("provokers.llm.prompt_chars", len(systemPrompt)))

	t0 := time.Now()
	text, err := i.next.Generate(ctx, systemPrompt, format)
	elapsed := time.Since(t0)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("provokers.llm.response_chars", len(text)))
	}
	if llmMetrics.duration != nil {
		llmMetrics.duration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
		llmMetrics.calls.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("outcome", outcome))...))
	}

	i.logger.Debug("model call",
		zap.String("provider", i.provider),
		zap.String("format", string(format)),
		zap.Duration("elapsed", elapsed),
		zap.Int("prompt_chars", len(systemPrompt)),
		zap.Int("response_chars", len(text)),
		zap.Error(err),
	)
	return text, err
}

// Unwrap returns the wrapped generator.
func (i *instrumented) Unwrap() Generator {
	return i.next
}
