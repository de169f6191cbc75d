// internal/triage/engine.go
package triage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
)

const tracerName = "github.com/umeed-health/umeed/internal/triage"

// PredictEvent describes one completed pipeline run, for metrics.
type PredictEvent struct {
	Category          Category
	PredictedClass    RiskClass
	FinalClass        RiskClass
	OverrideTriggered bool
	OverrideRule      string
	PriorityScore     int
	Duration          float64
}

// EngineHooks are optional callbacks fired during Engine.Predict.
type EngineHooks struct {
	OnPredict          func(e *PredictEvent)
	OnPredictError     func(category Category)
	OnCoercionFallback func(category Category, field string)
}

// Engine runs the triage pipeline: route, vectorize, predict, override, score.
// It holds no per-call state, so one Engine serves concurrent callers.
type Engine struct {
	registry *Registry
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates a new triage engine over a loaded model registry.
func NewEngine(registry *Registry, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		registry: registry,
		logger:   logger,
		hooks:    hooks,
	}
}

// Predict runs the full pipeline for one encounter. It returns either a
// complete Result or an error; there is no partial result.
func (e *Engine) Predict(ctx context.Context, rec Record) (*Result, error) {
	start := time.Now()

	fields := newFieldTracker(rec)
	category, names := route(fields)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "triage.Predict")
	defer span.End()
	span.SetAttributes(attribute.String("umeed.triage.category", string(category)))

	L := e.logger.With("category", category)

	vec := vectorize(fields, names)
	rule, breached := breachedRule(fields)
	e.reportFallbacks(ctx, L, category, fields.drain())

	probs, err := e.infer(ctx, category, vec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		L.Error(ctx, err, "prediction failed")
		if e.hooks.OnPredictError != nil {
			e.hooks.OnPredictError(category)
		}
		return nil, err
	}

	predicted := probs.ArgMax()
	final := predicted
	if breached {
		final = RiskHigh
	}
	overridden := final != predicted
	score := priorityScore(final, fields)
	e.reportFallbacks(ctx, L, category, fields.drain())

	result := &Result{
		Category:          category,
		RiskClass:         final,
		RiskLabel:         final.Label(),
		PriorityScore:     score,
		OverrideTriggered: overridden,
		Probabilities:     probs.Rounded(),
		RecommendedAction: final.Action(),
	}

	span.SetAttributes(
		attribute.Int("umeed.triage.predicted_class", int(predicted)),
		attribute.Int("umeed.triage.risk_class", int(final)),
		attribute.Bool("umeed.triage.override", overridden),
		attribute.Int("umeed.triage.priority_score", score),
	)

	L.Info(ctx, "triage prediction",
		"predicted_class", int(predicted),
		"risk_class", int(final),
		"override_triggered", overridden,
		"priority_score", score,
	)

	if e.hooks.OnPredict != nil {
		ev := &PredictEvent{
			Category:          category,
			PredictedClass:    predicted,
			FinalClass:        final,
			OverrideTriggered: overridden,
			PriorityScore:     score,
			Duration:          time.Since(start).Seconds(),
		}
		if overridden {
			ev.OverrideRule = rule
		}
		e.hooks.OnPredict(ev)
	}

	return result, nil
}

// reportFallbacks logs and reports fields that were present but could not be
// coerced.
func (e *Engine) reportFallbacks(ctx context.Context, L log.Logger, category Category, fields []string) {
	for _, field := range fields {
		L.Warn(ctx, "numeric coercion fallback", "field", field)
		if e.hooks.OnCoercionFallback != nil {
			e.hooks.OnCoercionFallback(category, field)
		}
	}
}

func (e *Engine) infer(ctx context.Context, category Category, vec FeatureVector) (Probabilities, error) {
	p, ok := e.registry.Get(category)
	if !ok {
		return Probabilities{}, fmt.Errorf("%w: %s", ErrPredictorUnavailable, category)
	}
	probs, err := p.PredictProbabilities(ctx, vec)
	if err != nil {
		return Probabilities{}, fmt.Errorf("predict %s: %w", category, err)
	}
	if !probs.valid() {
		return Probabilities{}, fmt.Errorf("predict %s: %w: %+v", category, ErrInvalidProbabilities, probs)
	}
	return probs, nil
}
