package models

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// GBTParams are the gradient-boosted-trees hyperparameters.
type GBTParams struct {
	// Rounds is the maximum number of boosting rounds.
	Rounds int `json:"rounds"`

	// LearningRate shrinks each tree's contribution.
	LearningRate float64 `json:"learning_rate"`

	// MaxDepth limits tree depth.
	MaxDepth int `json:"max_depth"`

	// MinChildSamples is the minimum number of rows in a leaf.
	MinChildSamples int `json:"min_child_samples"`

	// Subsample is the fraction of rows sampled per round, without
	// replacement. 1 disables subsampling.
	Subsample float64 `json:"subsample"`

	// EarlyStoppingRounds stops training after this many rounds without
	// holdout improvement. 0 disables early stopping.
	EarlyStoppingRounds int `json:"early_stopping_rounds"`

	// Seed fixes the row-subsampling RNG for reproducible training.
	Seed int64 `json:"seed"`
}

// DefaultGBTParams returns the standard configuration for monthly sales
// panels: 500 rounds at learning rate 0.05 with 80% row subsampling and
// early stopping after 50 stale rounds.
func DefaultGBTParams() GBTParams {
	return GBTParams{
		Rounds:              500,
		LearningRate:        0.05,
		MaxDepth:            6,
		MinChildSamples:     20,
		Subsample:           0.8,
		EarlyStoppingRounds: 50,
		Seed:                42,
	}
}

// GBTRegressor is a least-squares gradient-boosted regression tree ensemble.
// Missing feature values (NaN) are routed to the left child at every split,
// so rows with undefined historical aggregates remain usable.
//
// The regressor is not safe for concurrent Fit calls; Predict is safe for
// concurrent use once fitted.
type GBTRegressor struct {
	Params GBTParams `json:"params"`

	Base          float64   `json:"base"`
	Trees         []*tree   `json:"trees"`
	BestIteration int       `json:"best_iteration"`
	Gains         []float64 `json:"gains"`

	fitted bool
}

// NewGBTRegressor creates an unfitted regressor with the given parameters.
// Zero-valued fields fall back to the defaults.
func NewGBTRegressor(params GBTParams) *GBTRegressor {
	def := DefaultGBTParams()
	if params.Rounds <= 0 {
		params.Rounds = def.Rounds
	}
	if params.LearningRate <= 0 {
		params.LearningRate = def.LearningRate
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = def.MaxDepth
	}
	if params.MinChildSamples <= 0 {
		params.MinChildSamples = def.MinChildSamples
	}
	if params.Subsample <= 0 || params.Subsample > 1 {
		params.Subsample = def.Subsample
	}
	return &GBTRegressor{Params: params}
}

// Name returns the model identifier.
func (m *GBTRegressor) Name() string {
	return fmt.Sprintf("gbt(rounds=%d,lr=%g,depth=%d)", m.Params.Rounds, m.Params.LearningRate, m.Params.MaxDepth)
}

// Fit trains the ensemble on X against y. When eval is non-nil, holdout RMSE
// is tracked each round and training stops once it has not improved for
// EarlyStoppingRounds rounds; the ensemble is then truncated to its best
// iteration.
func (m *GBTRegressor) Fit(ctx context.Context, X [][]float64, y []float64, eval *EvalSet) error {
	if err := validateMatrix(X, y); err != nil {
		return fmt.Errorf("gbt fit: %w", err)
	}
	if eval != nil {
		if err := validateMatrix(eval.X, eval.Y); err != nil {
			return fmt.Errorf("gbt fit eval set: %w", err)
		}
	}

	n := len(X)
	nFeatures := len(X[0])

	m.Base = mean(y)
	m.Trees = nil

	// Gains are collected per round so that rounds discarded by the
	// early-stopping truncation below do not count toward importances.
	var roundGains [][]float64

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.Base
	}

	var evalPred []float64
	if eval != nil {
		evalPred = make([]float64, len(eval.X))
		for i := range evalPred {
			evalPred[i] = m.Base
		}
	}

	rng := rand.New(rand.NewSource(m.Params.Seed))
	grad := make([]float64, n)

	bestRMSE := math.Inf(1)
	staleRounds := 0
	m.BestIteration = 0

	for round := 0; round < m.Params.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range grad {
			grad[i] = y[i] - pred[i]
		}

		samples := m.sampleRows(rng, n)

		builder := &treeBuilder{
			X:          X,
			grad:       grad,
			maxDepth:   m.Params.MaxDepth,
			minSamples: m.Params.MinChildSamples,
			gains:      make([]float64, nFeatures),
		}
		t := builder.build(samples)
		m.Trees = append(m.Trees, t)
		roundGains = append(roundGains, builder.gains)

		lr := m.Params.LearningRate
		for i := range pred {
			pred[i] += lr * t.predict(X[i])
		}

		if eval == nil {
			m.BestIteration = len(m.Trees)
			continue
		}

		for i := range evalPred {
			evalPred[i] += lr * t.predict(eval.X[i])
		}
		rmse := rootMeanSquaredError(eval.Y, evalPred)
		if rmse < bestRMSE {
			bestRMSE = rmse
			m.BestIteration = len(m.Trees)
			staleRounds = 0
		} else {
			staleRounds++
			if m.Params.EarlyStoppingRounds > 0 && staleRounds >= m.Params.EarlyStoppingRounds {
				break
			}
		}
	}

	m.Trees = m.Trees[:m.BestIteration]
	m.Gains = make([]float64, nFeatures)
	for _, rg := range roundGains[:m.BestIteration] {
		for i, g := range rg {
			m.Gains[i] += g
		}
	}
	m.fitted = true
	return nil
}

func (m *GBTRegressor) sampleRows(rng *rand.Rand, n int) []int {
	k := n
	if m.Params.Subsample < 1 {
		k = int(math.Round(m.Params.Subsample * float64(n)))
		if k < 1 {
			k = 1
		}
	}
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(n)[:k]
}

// Predict returns one prediction per row of X.
func (m *GBTRegressor) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted && len(m.Trees) == 0 {
		return nil, fmt.Errorf("gbt predict: model is not fitted")
	}
	if err := validateMatrix(X, nil); err != nil {
		return nil, fmt.Errorf("gbt predict: %w", err)
	}

	lr := m.Params.LearningRate
	out := make([]float64, len(X))
	for i, row := range X {
		p := m.Base
		for _, t := range m.Trees {
			p += lr * t.predict(row)
		}
		out[i] = p
	}
	return out, nil
}

// FeatureImportances returns the accumulated split gain per feature,
// normalized to sum to 1.
func (m *GBTRegressor) FeatureImportances() []float64 {
	out := make([]float64, len(m.Gains))
	total := 0.0
	for _, g := range m.Gains {
		total += g
	}
	if total == 0 {
		return out
	}
	for i, g := range m.Gains {
		out[i] = g / total
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func rootMeanSquaredError(truth, pred []float64) float64 {
	sum := 0.0
	for i := range truth {
		d := truth[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth)))
}
