package evaluation

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute(t *testing.T) {
	truth := []float64{100, 200, 400}
	pred := []float64{110, 190, 360}

	m, err := Compute(truth, pred)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}

	// Errors are 10, 10, 40.
	if !almostEqual(m.MAE, 20) {
		t.Errorf("MAE = %v, want 20", m.MAE)
	}
	wantRMSE := math.Sqrt((100.0 + 100 + 1600) / 3)
	if !almostEqual(m.RMSE, wantRMSE) {
		t.Errorf("RMSE = %v, want %v", m.RMSE, wantRMSE)
	}
	wantMAPE := (0.1 + 0.05 + 0.1) / 3 * 100
	if !almostEqual(m.MAPE, wantMAPE) {
		t.Errorf("MAPE = %v, want %v", m.MAPE, wantMAPE)
	}
}

func TestCompute_PerfectPrediction(t *testing.T) {
	truth := []float64{5, 10, 15}

	m, err := Compute(truth, truth)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}
	if m.MAE != 0 || m.RMSE != 0 || m.MAPE != 0 {
		t.Errorf("metrics = %+v, want all zero", m)
	}
}

func TestCompute_SkipsZeroTruthsInMAPE(t *testing.T) {
	truth := []float64{0, 100}
	pred := []float64{50, 110}

	m, err := Compute(truth, pred)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}

	// Only the non-zero truth contributes: |110-100|/100 = 10%.
	if !almostEqual(m.MAPE, 10) {
		t.Errorf("MAPE = %v, want 10", m.MAPE)
	}
	// MAE and RMSE still cover every row.
	if !almostEqual(m.MAE, 30) {
		t.Errorf("MAE = %v, want 30", m.MAE)
	}
}

func TestCompute_AllZeroTruths(t *testing.T) {
	m, err := Compute([]float64{0, 0}, []float64{1, 2})
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}
	if !math.IsNaN(m.MAPE) {
		t.Errorf("MAPE = %v, want NaN when every truth is zero", m.MAPE)
	}
}

func TestCompute_Errors(t *testing.T) {
	if _, err := Compute(nil, nil); err == nil {
		t.Error("Compute() on empty input should fail")
	}
	if _, err := Compute([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("Compute() on mismatched lengths should fail")
	}
}

func TestImprovement(t *testing.T) {
	tests := []struct {
		name            string
		baseline, model float64
		want            float64
	}{
		{"model halves the error", 100, 50, 50},
		{"model is worse", 100, 120, -20},
		{"equal", 100, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Improvement(tt.baseline, tt.model); !almostEqual(got, tt.want) {
				t.Errorf("Improvement(%v, %v) = %v, want %v", tt.baseline, tt.model, got, tt.want)
			}
		})
	}

	if got := Improvement(0, 10); !math.IsNaN(got) {
		t.Errorf("Improvement(0, 10) = %v, want NaN", got)
	}
}

func TestReportImprovements(t *testing.T) {
	r := Report{
		Model:    Metrics{MAE: 50, RMSE: 80, MAPE: 10},
		Baseline: &Metrics{MAE: 100, RMSE: 100, MAPE: 20},
	}

	imp := r.Improvements()
	if !almostEqual(imp["mae"], 50) || !almostEqual(imp["rmse"], 20) || !almostEqual(imp["mape"], 50) {
		t.Errorf("Improvements() = %v", imp)
	}

	if (Report{Model: r.Model}).Improvements() != nil {
		t.Error("Improvements() without baseline should be nil")
	}
}
