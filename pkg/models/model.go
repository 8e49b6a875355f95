// Package models provides the regression model contract consumed by the
// training and prediction pipelines, plus an in-house gradient-boosted-trees
// implementation of it.
//
// The pipelines are agnostic to the concrete algorithm: anything that can
// fit a feature matrix against a target vector and predict from the same
// matrix layout satisfies the contract.
package models

import (
	"context"
	"fmt"
)

// EvalSet is an optional holdout pair used for early stopping during Fit.
type EvalSet struct {
	X [][]float64
	Y []float64
}

// Model is the regressor contract. X is row-major with one column per
// canonical feature; undefined feature values are NaN and implementations
// must handle them.
type Model interface {
	// Name returns the model identifier.
	Name() string

	// Fit trains the model on X against y. When eval is non-nil,
	// implementations may use it for early stopping.
	Fit(ctx context.Context, X [][]float64, y []float64, eval *EvalSet) error

	// Predict returns one prediction per row of X. The model must have been
	// fitted first.
	Predict(X [][]float64) ([]float64, error)

	// FeatureImportances returns one score per feature column, normalized to
	// sum to 1 (all zeros before fitting).
	FeatureImportances() []float64
}

func validateMatrix(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("feature matrix is empty")
	}
	if y != nil && len(X) != len(y) {
		return fmt.Errorf("feature matrix has %d rows but target has %d", len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), width)
		}
	}
	return nil
}
