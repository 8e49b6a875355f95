package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HatiCode/salescast/pkg/dataset"
	"github.com/HatiCode/salescast/pkg/features"
)

func fittedArtifacts(t *testing.T) *features.Artifacts {
	t.Helper()

	p := &dataset.Panel{Exog: []string{"price"}}
	for i := 0; i < 6; i++ {
		p.Records = append(p.Records, dataset.Record{
			Agency: "A1", SKU: "S1",
			Date:   time.Date(2016, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Volume: float64(10 * (i + 1)),
			Exog:   map[string]float64{"price": 1000 + float64(i)},
		})
	}
	schema := dataset.FitSchema(p)
	schema.Apply(p)

	_, arts, err := features.FitTransform(p, features.Config{Lags: []int{1}, Windows: []int{3}}, schema)
	if err != nil {
		t.Fatalf("FitTransform() unexpected error: %v", err)
	}
	return arts
}

func TestSaveLoad(t *testing.T) {
	arts := fittedArtifacts(t)
	path := filepath.Join(t.TempDir(), "nested", "artifacts.json")

	if err := Save(path, arts); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if len(loaded.Config.Lags) != 1 || loaded.Config.Lags[0] != 1 {
		t.Errorf("Config.Lags = %v, want [1]", loaded.Config.Lags)
	}
	if len(loaded.Schema.Exog) != 1 || loaded.Schema.Exog[0] != "price" {
		t.Errorf("Schema.Exog = %v, want [price]", loaded.Schema.Exog)
	}
	if loaded.Means.GlobalMean != arts.Means.GlobalMean {
		t.Errorf("GlobalMean = %v, want %v", loaded.Means.GlobalMean, arts.Means.GlobalMean)
	}
	if len(loaded.History) != len(arts.History) {
		t.Errorf("History length = %d, want %d", len(loaded.History), len(arts.History))
	}

	// The encoder round-trips intact.
	code, err := loaded.Encoders.Agency.Encode("A1")
	if err != nil || code != 0 {
		t.Errorf("Encode(A1) = (%d, %v), want (0, nil)", code, err)
	}

	// Feature layout is stable across the round trip.
	before, after := arts.Columns(), loaded.Columns()
	if len(before) != len(after) {
		t.Fatalf("Columns() length changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Columns()[%d] = %q, want %q", i, after[i], before[i])
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("Load() of a missing file should fail")
	}

	malformed := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(malformed, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(malformed); err == nil {
		t.Error("Load() of malformed JSON should fail")
	}

	incomplete := filepath.Join(dir, "incomplete.json")
	if err := os.WriteFile(incomplete, []byte(`{"config":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(incomplete); err == nil {
		t.Error("Load() of incomplete artifacts should fail")
	}
}

func TestSave_Errors(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "a.json"), nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}
