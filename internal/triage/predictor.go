package triage

import (
	"context"
	"fmt"
)

// Predictor is a pre-trained classifier for one category.
type Predictor interface {
	PredictProbabilities(ctx context.Context, v FeatureVector) (Probabilities, error)
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(ctx context.Context, v FeatureVector) (Probabilities, error)

// PredictProbabilities implements Predictor.
func (f PredictorFunc) PredictProbabilities(ctx context.Context, v FeatureVector) (Probabilities, error) {
	return f(ctx, v)
}

// Registry holds the loaded predictors keyed by category. It is built once at
// startup and only read afterwards, so it is safe to share across goroutines
// as long as the predictors themselves are.
type Registry struct {
	predictors map[Category]Predictor
}

// NewRegistry creates a registry from the three category predictors. Every
// predictor is required.
func NewRegistry(pregnant, child, general Predictor) (*Registry, error) {
	r := &Registry{predictors: make(map[Category]Predictor, len(Categories))}
	for c, p := range map[Category]Predictor{
		CategoryPregnant: pregnant,
		CategoryChild:    child,
		CategoryGeneral:  general,
	} {
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrPredictorUnavailable, c)
		}
		r.predictors[c] = p
	}
	return r, nil
}

// Get retrieves the predictor for a category.
func (r *Registry) Get(c Category) (Predictor, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.predictors[c]
	return p, ok
}
