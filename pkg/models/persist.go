package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes a fitted regressor to path as JSON, creating parent
// directories as needed.
func Save(path string, m *GBTRegressor) error {
	if m == nil || len(m.Trees) == 0 {
		return fmt.Errorf("cannot save an unfitted model")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return nil
}

// Load reads a previously saved regressor from path. The returned model is
// ready for Predict calls.
func Load(path string) (*GBTRegressor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var m GBTRegressor
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal model %s: %w", path, err)
	}
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("model %s contains no trees", path)
	}
	m.fitted = true
	return &m, nil
}
