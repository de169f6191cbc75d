package triage

import "errors"

var (
	// ErrPredictorUnavailable means no predictor is registered for a category.
	ErrPredictorUnavailable = errors.New("predictor unavailable")

	// ErrInvalidProbabilities means a predictor returned a triple that is not
	// three finite, non-negative numbers.
	ErrInvalidProbabilities = errors.New("invalid probabilities")
)
