// Package evaluation computes holdout error metrics for trained models and
// compares them against the historical-mean baseline.
package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics holds the standard regression error measures. MAPE is expressed
// in percent and skips zero-valued truths.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
}

// Compute calculates MAE, RMSE and MAPE of pred against truth.
func Compute(truth, pred []float64) (Metrics, error) {
	if len(truth) == 0 || len(truth) != len(pred) {
		return Metrics{}, fmt.Errorf("evaluation: got %d truths and %d predictions", len(truth), len(pred))
	}

	diff := make([]float64, len(truth))
	floats.SubTo(diff, truth, pred)

	abs := make([]float64, len(diff))
	sq := make([]float64, len(diff))
	for i, d := range diff {
		abs[i] = math.Abs(d)
		sq[i] = d * d
	}

	var pct []float64
	for i := range truth {
		if truth[i] != 0 {
			pct = append(pct, math.Abs(diff[i]/truth[i]))
		}
	}
	mape := math.NaN()
	if len(pct) > 0 {
		mape = stat.Mean(pct, nil) * 100
	}

	return Metrics{
		MAE:  stat.Mean(abs, nil),
		RMSE: math.Sqrt(stat.Mean(sq, nil)),
		MAPE: mape,
	}, nil
}

// Improvement is the percentage improvement of model over baseline for one
// metric; positive means the model is better.
func Improvement(baseline, model float64) float64 {
	if baseline == 0 {
		return math.NaN()
	}
	return (baseline - model) / baseline * 100
}

// Report pairs model metrics with the baseline comparison.
type Report struct {
	Model    Metrics  `json:"model"`
	Baseline *Metrics `json:"baseline,omitempty"`
}

// Improvements returns the per-metric percentage improvements over the
// baseline, or nil when no baseline is present.
func (r Report) Improvements() map[string]float64 {
	if r.Baseline == nil {
		return nil
	}
	return map[string]float64{
		"mae":  Improvement(r.Baseline.MAE, r.Model.MAE),
		"rmse": Improvement(r.Baseline.RMSE, r.Model.RMSE),
		"mape": Improvement(r.Baseline.MAPE, r.Model.MAPE),
	}
}
