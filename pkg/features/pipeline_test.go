package features

import (
	"errors"
	"testing"

	"github.com/HatiCode/salescast/pkg/dataset"
)

func trainingPanel() *dataset.Panel {
	p := &dataset.Panel{Exog: []string{"price"}}
	for _, ent := range []struct{ agency, sku string }{
		{"A1", "S1"}, {"A2", "S1"},
	} {
		for i := 0; i < 8; i++ {
			p.Records = append(p.Records, dataset.Record{
				Agency: ent.agency, SKU: ent.sku,
				Date:   mdate(2016, 1).AddDate(0, i, 0),
				Volume: float64(10 * (i + 1)),
				Exog:   map[string]float64{"price": 1000 + float64(i)},
			})
		}
	}
	p.Sort()
	return p
}

func smallConfig() Config {
	return Config{Lags: []int{1, 2}, Windows: []int{3}}
}

func TestConfigMaxHorizon(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"defaults", DefaultConfig(), 12},
		{"window dominates", Config{Lags: []int{1}, Windows: []int{6}}, 6},
		{"lag dominates", Config{Lags: []int{24}, Windows: []int{3}}, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.MaxHorizon(); got != tt.want {
				t.Errorf("MaxHorizon() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFitTransform(t *testing.T) {
	p := trainingPanel()
	schema := dataset.FitSchema(p)
	schema.Apply(p)

	frame, arts, err := FitTransform(p, smallConfig(), schema)
	if err != nil {
		t.Fatalf("FitTransform() unexpected error: %v", err)
	}

	if len(frame.Rows) != p.Len() {
		t.Fatalf("frame has %d rows, want %d", len(frame.Rows), p.Len())
	}

	// Column order is fixed: encodings, calendar, means, lags, exogenous.
	cols := arts.Columns()
	if cols[0] != FeatAgencyEncoded || cols[1] != FeatSKUEncoded {
		t.Errorf("columns start with %v, want encoded identifiers", cols[:2])
	}
	if cols[len(cols)-1] != "price" {
		t.Errorf("last column = %q, want price", cols[len(cols)-1])
	}

	// A late row has every feature defined.
	last := frame.Rows[7]
	for _, c := range cols {
		if _, ok := last[c]; !ok {
			t.Errorf("feature %q undefined on a row with full history", c)
		}
	}

	if arts.Means == nil || arts.Encoders.Agency == nil || arts.Encoders.SKU == nil {
		t.Fatal("artifacts missing learned state")
	}
	if len(arts.History) == 0 {
		t.Error("artifacts should carry trailing history")
	}
	if arts.TrainedAt.IsZero() {
		t.Error("artifacts should record the training time")
	}
}

func TestTransform_Reproducible(t *testing.T) {
	p := trainingPanel()
	schema := dataset.FitSchema(p)
	schema.Apply(p)

	frame1, arts, err := FitTransform(p, smallConfig(), schema)
	if err != nil {
		t.Fatalf("FitTransform() unexpected error: %v", err)
	}

	frame2, err := Transform(p, arts)
	if err != nil {
		t.Fatalf("Transform() unexpected error: %v", err)
	}

	cols := arts.Columns()
	m1, m2 := frame1.Matrix(cols), frame2.Matrix(cols)
	for i := range m1 {
		for j := range m1[i] {
			a, b := m1[i][j], m2[i][j]
			if a != b && !(a != a && b != b) { // NaN == NaN for this purpose
				t.Fatalf("row %d col %s differs: fit=%v transform=%v", i, cols[j], a, b)
			}
		}
	}
}

func TestTransform_UnseenEntity(t *testing.T) {
	p := trainingPanel()
	schema := dataset.FitSchema(p)
	schema.Apply(p)

	fresh := &dataset.Panel{Exog: p.Exog, Records: []dataset.Record{
		{Agency: "A9", SKU: "S1", Date: mdate(2017, 1), Volume: 10},
	}}

	t.Run("fails by default", func(t *testing.T) {
		_, arts, err := FitTransform(p, smallConfig(), schema)
		if err != nil {
			t.Fatalf("FitTransform() unexpected error: %v", err)
		}

		_, err = Transform(fresh, arts)
		var uee *UnseenEntityError
		if !errors.As(err, &uee) {
			t.Fatalf("error = %v, want UnseenEntityError", err)
		}
	})

	t.Run("sentinel when allowed", func(t *testing.T) {
		cfg := smallConfig()
		cfg.AllowUnknownEntities = true
		_, arts, err := FitTransform(p, cfg, schema)
		if err != nil {
			t.Fatalf("FitTransform() unexpected error: %v", err)
		}

		frame, err := Transform(fresh, arts)
		if err != nil {
			t.Fatalf("Transform() unexpected error: %v", err)
		}
		if got := frame.Rows[0][FeatAgencyEncoded]; got != float64(UnknownCode) {
			t.Errorf("agency_encoded = %v, want sentinel %d", got, UnknownCode)
		}
	})
}

func TestFitTransform_EmptyPanel(t *testing.T) {
	_, _, err := FitTransform(&dataset.Panel{}, smallConfig(), dataset.Schema{})
	var se *dataset.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
}

func TestArtifactsRequiredLagColumns(t *testing.T) {
	arts := &Artifacts{Config: Config{Lags: []int{1, 12}, Windows: []int{3}}}
	got := arts.RequiredLagColumns()
	want := []string{"volume_lag_1", "volume_lag_12", "volume_rolling_mean_3"}
	if len(got) != len(want) {
		t.Fatalf("RequiredLagColumns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RequiredLagColumns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
