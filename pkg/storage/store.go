// Package storage provides prediction snapshot storage implementations.
//
// A snapshot is the output of one prediction or forecast run for a named
// dataset. The predictor's serve mode stores the latest snapshot here and
// exposes it over HTTP; the Redis backend lets multiple predictor instances
// share it.
package storage

import (
	"context"
	"time"
)

// Prediction is one forecast row: a predicted volume for an (agency, sku)
// pair at a date, with identifiers already decoded to their raw form.
type Prediction struct {
	Agency string    `json:"agency"`
	SKU    string    `json:"sku"`
	Date   time.Time `json:"date"`
	Volume float64   `json:"volume"`
}

// Snapshot is the result of one prediction run.
type Snapshot struct {
	// Dataset names the panel the predictions were generated for.
	Dataset string `json:"dataset"`

	GeneratedAt time.Time `json:"generatedAt"`
	Model       string    `json:"model"`

	// RowsDropped counts input rows discarded for insufficient lag history.
	RowsDropped int `json:"rowsDropped"`

	Predictions []Prediction `json:"predictions"`
}

// Store persists the latest snapshot per dataset.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, dataset string) (Snapshot, bool, error)
}
