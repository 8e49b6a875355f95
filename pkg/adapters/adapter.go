// Package adapters provides salescast data source connectors that read raw
// sales panels from external systems and normalize them into a common
// tabular structure.
//
// Each adapter implements the Source interface and can be plugged into the
// trainer or predictor. Available sources:
//   - CSVSource  — reads a local CSV file with a header row
//   - HTTPSource — generic source for any REST API with JSON responses
//
// Sources are intentionally lightweight: they pull raw rows and leave all
// validation, sorting, and feature building to the dataset and features
// layers.
package adapters

import (
	"context"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// Source is the interface all panel ingestion adapters implement.
//
// Fetch is synchronous and must respect context cancellation. The returned
// table is raw: dates and numbers may still be strings, and nothing has been
// validated yet.
type Source interface {
	// Fetch reads all rows from the source and returns them as a raw table.
	Fetch(ctx context.Context) (*dataset.Table, error)

	// Name returns a short, unique identifier for the source.
	// Example: "csv", "http".
	Name() string
}
