// Package artifacts persists and loads the training artifacts that make
// inference-time features reproducible: the fitted pipeline statistics from
// pkg/features, serialized as a single JSON blob.
//
// Artifacts are written once by the trainer and loaded read-only by the
// predictor. JSON keeps them inspectable with standard tooling, which has
// proven useful when debugging feature drift between runs.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HatiCode/salescast/pkg/features"
)

// Save writes the fitted pipeline artifacts to path, creating parent
// directories as needed. The write goes through a temporary file and rename
// so a crashed run never leaves a truncated artifact behind.
func Save(path string, a *features.Artifacts) error {
	if a == nil {
		return fmt.Errorf("artifacts cannot be nil")
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".artifacts-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifacts file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifacts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifacts file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifacts into place: %w", err)
	}
	return nil
}

// Load reads previously saved artifacts from path. The returned value must
// be treated as immutable; any number of transform calls may share it.
func Load(path string) (*features.Artifacts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifacts %s: %w", path, err)
	}

	var a features.Artifacts
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifacts %s: %w", path, err)
	}

	if a.Means == nil || a.Encoders.Agency == nil || a.Encoders.SKU == nil {
		return nil, fmt.Errorf("artifacts %s are incomplete: missing means tables or encoders", path)
	}
	return &a, nil
}
