package features

import (
	"errors"
	"math"
	"testing"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// seriesPanel builds a single-entity monthly panel with the given volumes
// starting at 2016-01.
func seriesPanel(agency, sku string, volumes ...float64) *dataset.Panel {
	p := &dataset.Panel{}
	for i, v := range volumes {
		p.Records = append(p.Records, dataset.Record{
			Agency: agency, SKU: sku,
			Date:   mdate(2016, 1).AddDate(0, i, 0),
			Volume: v,
		})
	}
	return p
}

func emptyFrame(n int) *FeatureFrame {
	f := &FeatureFrame{Rows: make([]map[string]float64, n)}
	for i := range f.Rows {
		f.Rows[i] = map[string]float64{}
	}
	return f
}

func TestAddLagFeatures(t *testing.T) {
	p := seriesPanel("A1", "S1", 10, 20, 30, 40, 50, 60, 70)
	frame := emptyFrame(p.Len())

	if err := AddLagFeatures(frame, p, []int{1, 3}, []int{3}); err != nil {
		t.Fatalf("AddLagFeatures() unexpected error: %v", err)
	}

	// volume_lag_1 is undefined at the first observation only.
	if _, ok := frame.Rows[0][LagColumn(1)]; ok {
		t.Error("lag 1 should be undefined at position 0")
	}
	if got := frame.Rows[1][LagColumn(1)]; got != 10 {
		t.Errorf("lag 1 at position 1 = %v, want 10", got)
	}
	if got := frame.Rows[6][LagColumn(1)]; got != 60 {
		t.Errorf("lag 1 at position 6 = %v, want 60", got)
	}

	// volume_lag_3 needs three prior observations.
	if _, ok := frame.Rows[2][LagColumn(3)]; ok {
		t.Error("lag 3 should be undefined at position 2")
	}
	if got := frame.Rows[3][LagColumn(3)]; got != 10 {
		t.Errorf("lag 3 at position 3 = %v, want 10", got)
	}
	if got := frame.Rows[6][LagColumn(3)]; got != 40 {
		t.Errorf("lag 3 at position 6 = %v, want 40", got)
	}

	// The rolling window ends one observation before the current one: at
	// position 3 it covers volumes 10, 20, 30.
	if _, ok := frame.Rows[2][RollingColumn(3)]; ok {
		t.Error("rolling 3 should be undefined at position 2")
	}
	if got := frame.Rows[3][RollingColumn(3)]; got != 20 {
		t.Errorf("rolling 3 at position 3 = %v, want 20", got)
	}
	if got := frame.Rows[6][RollingColumn(3)]; got != 50 {
		t.Errorf("rolling 3 at position 6 = %v, want 50", got)
	}
}

func TestAddLagFeatures_NoCurrentObservationLeak(t *testing.T) {
	// A spike at the current position must not appear in its own rolling
	// mean.
	p := seriesPanel("A1", "S1", 10, 10, 10, 1000)
	frame := emptyFrame(p.Len())

	if err := AddLagFeatures(frame, p, nil, []int{3}); err != nil {
		t.Fatalf("AddLagFeatures() unexpected error: %v", err)
	}

	if got := frame.Rows[3][RollingColumn(3)]; got != 10 {
		t.Errorf("rolling 3 at spike position = %v, want 10", got)
	}
}

func TestAddLagFeatures_EntityBoundaries(t *testing.T) {
	a := seriesPanel("A1", "S1", 10, 20)
	b := seriesPanel("A2", "S1", 100, 200)
	p := &dataset.Panel{Records: append(a.Records, b.Records...)}
	frame := emptyFrame(p.Len())

	if err := AddLagFeatures(frame, p, []int{1}, nil); err != nil {
		t.Fatalf("AddLagFeatures() unexpected error: %v", err)
	}

	// A2's series restarts: its first row has no lag even though it follows
	// A1's rows positionally.
	if _, ok := frame.Rows[2][LagColumn(1)]; ok {
		t.Error("lag 1 should be undefined at the start of a new entity")
	}
	if got := frame.Rows[3][LagColumn(1)]; got != 100 {
		t.Errorf("lag 1 for second entity = %v, want 100 (not a value from the first entity)", got)
	}
}

func TestAddLagFeatures_RejectsUnsortedPanel(t *testing.T) {
	p := seriesPanel("A1", "S1", 10, 20)
	p.Records[0], p.Records[1] = p.Records[1], p.Records[0]
	frame := emptyFrame(p.Len())

	err := AddLagFeatures(frame, p, []int{1}, nil)
	var se *dataset.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want SchemaError for unsorted panel", err)
	}
}

func TestLagColumns(t *testing.T) {
	got := LagColumns([]int{1, 12}, []int{3})
	want := []string{"volume_lag_1", "volume_lag_12", "volume_rolling_mean_3"}
	if len(got) != len(want) {
		t.Fatalf("LagColumns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LagColumns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatrixFillsUndefinedWithNaN(t *testing.T) {
	frame := &FeatureFrame{Rows: []map[string]float64{
		{"a": 1, "b": 2},
		{"a": 3},
	}}

	m := frame.Matrix([]string{"a", "b"})
	if m[0][0] != 1 || m[0][1] != 2 {
		t.Errorf("row 0 = %v, want [1 2]", m[0])
	}
	if m[1][0] != 3 || !math.IsNaN(m[1][1]) {
		t.Errorf("row 1 = %v, want [3 NaN]", m[1])
	}
}

func TestDropIncomplete(t *testing.T) {
	p := seriesPanel("A1", "S1", 10, 20, 30)
	frame := emptyFrame(p.Len())
	if err := AddLagFeatures(frame, p, []int{2}, nil); err != nil {
		t.Fatalf("AddLagFeatures() unexpected error: %v", err)
	}

	kept, keptPanel, dropped := DropIncomplete(frame, p, []string{LagColumn(2)})

	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(kept.Rows) != 1 || keptPanel.Len() != 1 {
		t.Fatalf("kept (%d rows, %d records), want (1, 1)", len(kept.Rows), keptPanel.Len())
	}
	if keptPanel.Records[0].Volume != 30 {
		t.Errorf("kept record volume = %v, want 30", keptPanel.Records[0].Volume)
	}
}
