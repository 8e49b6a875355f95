// Package main implements the prediction pipeline orchestration.
//
// This file contains the Predictor type which scores future panel rows with
// a previously trained model:
//
//	load → carry forward exogenous → transform → predict → clip → store
//
// Lag features for incoming rows are computed against the trailing history
// persisted with the training artifacts, so a prediction request only needs
// to carry the rows being scored. Batches spanning several periods are
// scored oldest period first, with each period's predictions joining the
// working history so the next period's lag features resolve to predicted
// volumes. Forecast mode extends the same recursion across a whole horizon.
//
// The pipeline is instrumented with Prometheus metrics tracking the duration
// of each stage (fetch, transform, inference) and any errors encountered.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/HatiCode/salescast/cmd/predictor/metrics"
	"github.com/HatiCode/salescast/pkg/adapters"
	"github.com/HatiCode/salescast/pkg/dataset"
	"github.com/HatiCode/salescast/pkg/features"
	"github.com/HatiCode/salescast/pkg/models"
	"github.com/HatiCode/salescast/pkg/storage"
)

// Predictor scores future panel rows using a trained model and its frozen
// feature artifacts.
type Predictor struct {
	dataset   string
	model     *models.GBTRegressor
	artifacts *features.Artifacts
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewPredictor creates a new Predictor.
func NewPredictor(dataset string, model *models.GBTRegressor, artifacts *features.Artifacts, logger *slog.Logger, m *metrics.Metrics) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{
		dataset:   dataset,
		model:     model,
		artifacts: artifacts,
		logger:    logger,
		metrics:   m,
	}
}

// Predict scores the rows provided by source. Input rows carry identifiers,
// dates and whatever exogenous values are known; the target column may be
// absent. Rows whose entity lacks enough trailing history for the configured
// lags are dropped and counted in the snapshot.
func (p *Predictor) Predict(ctx context.Context, source adapters.Source) (storage.Snapshot, error) {
	start := time.Now()
	table, err := source.Fetch(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("source", "fetch_failed")
		}
		return storage.Snapshot{}, fmt.Errorf("fetch: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordFetch(time.Since(start).Seconds())
	}

	incoming, err := dataset.Normalize(table, dataset.NormalizeOptions{PlaceholderVolume: true})
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("dataset", "normalize_failed")
		}
		return storage.Snapshot{}, fmt.Errorf("normalize: %w", err)
	}
	p.logger.Info("loaded prediction input",
		"source", source.Name(),
		"rows", incoming.Len(),
	)

	predictions, dropped, err := p.scoreBatch(p.artifacts.History, incoming.Records)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("model", "predict_failed")
		}
		return storage.Snapshot{}, err
	}

	return p.snapshot(predictions, dropped), nil
}

// Forecast generates a recursive multi-period forecast for every entity seen
// at training time. Exogenous values are carried forward from each entity's
// last known record, and each period's predictions feed the next period's
// lag features.
func (p *Predictor) Forecast(ctx context.Context, horizon int, start time.Time) (storage.Snapshot, error) {
	history := append([]dataset.Record(nil), p.artifacts.History...)
	entities := historyEntities(history)
	if len(entities) == 0 {
		return storage.Snapshot{}, &dataset.SchemaError{Reason: "artifacts carry no trailing history to forecast from"}
	}

	if start.IsZero() {
		start = nextPeriod(maxRecordDate(history))
	}
	p.logger.Info("generating forecast",
		"entities", len(entities),
		"horizon", horizon,
		"start", start.Format("2006-01-02"),
	)

	var all []storage.Prediction
	totalDropped := 0
	period := start
	for h := 0; h < horizon; h++ {
		if err := ctx.Err(); err != nil {
			return storage.Snapshot{}, err
		}

		rows := make([]dataset.Record, len(entities))
		for i, ent := range entities {
			rows[i] = dataset.Record{Agency: ent.Agency, SKU: ent.SKU, Date: period}
		}

		predictions, dropped, err := p.score(history, rows)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordError("model", "forecast_failed")
			}
			return storage.Snapshot{}, fmt.Errorf("period %s: %w", period.Format("2006-01-02"), err)
		}
		all = append(all, predictions...)
		totalDropped += dropped

		// Feed predictions back as history so the next period's lags resolve.
		for _, pred := range predictions {
			history = append(history, dataset.Record{
				Agency: pred.Agency,
				SKU:    pred.SKU,
				Date:   pred.Date,
				Volume: pred.Volume,
			})
		}
		period = nextPeriod(period)
	}

	return p.snapshot(all, totalDropped), nil
}

// scoreBatch scores rows that may span several periods for the same entity.
// Periods are scored oldest first and each period's predictions join the
// working history, so a later period's lag features come from predicted
// volumes rather than from the placeholder targets on rows not yet scored.
func (p *Predictor) scoreBatch(history, rows []dataset.Record) ([]storage.Prediction, int, error) {
	byPeriod := make(map[time.Time][]dataset.Record)
	var periods []time.Time
	for _, r := range rows {
		if _, ok := byPeriod[r.Date]; !ok {
			periods = append(periods, r.Date)
		}
		byPeriod[r.Date] = append(byPeriod[r.Date], r)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	working := append([]dataset.Record(nil), history...)
	var all []storage.Prediction
	totalDropped := 0
	for _, period := range periods {
		predictions, dropped, err := p.score(working, byPeriod[period])
		totalDropped += dropped
		if err != nil {
			var insufficient *features.InsufficientHistoryError
			if errors.As(err, &insufficient) {
				continue // other periods may still be predictable
			}
			return nil, totalDropped, err
		}
		all = append(all, predictions...)
		for _, pred := range predictions {
			working = append(working, dataset.Record{
				Agency: pred.Agency,
				SKU:    pred.SKU,
				Date:   pred.Date,
				Volume: pred.Volume,
			})
		}
	}
	if len(all) == 0 {
		return nil, totalDropped, &features.InsufficientHistoryError{Dropped: totalDropped}
	}
	return all, totalDropped, nil
}

// score evaluates rows against the given trailing history: lag features are
// computed over history plus the rows themselves, and only the rows are
// returned as predictions. All rows must belong to one period; rows that
// duplicate a history key are rejected.
func (p *Predictor) score(history, rows []dataset.Record) ([]storage.Prediction, int, error) {
	incoming := &dataset.Panel{Records: rows, Exog: p.artifacts.Schema.Exog}
	incoming.Sort()

	known := make(map[recordKey]bool, len(history))
	for _, r := range history {
		known[keyOf(r)] = true
	}
	for _, r := range incoming.Records {
		if known[keyOf(r)] {
			return nil, 0, &dataset.SchemaError{Reason: fmt.Sprintf(
				"input row %s/%s at %s duplicates a history record",
				r.Agency, r.SKU, r.Date.Format("2006-01-02"))}
		}
	}

	missing := features.CarryForward(incoming, history, p.artifacts.Schema)
	if len(missing) > 0 {
		p.logger.Warn("entities have no history for exogenous carry-forward",
			"count", len(missing),
			"first", missing[0].Agency+"/"+missing[0].SKU)
	}

	combined := &dataset.Panel{
		Records: append(append([]dataset.Record(nil), history...), incoming.Records...),
		Exog:    p.artifacts.Schema.Exog,
	}
	combined.Sort()

	mark := make(map[recordKey]bool, len(incoming.Records))
	for _, r := range incoming.Records {
		mark[keyOf(r)] = true
	}

	start := time.Now()
	frame, err := features.Transform(combined, p.artifacts)
	if err != nil {
		return nil, 0, fmt.Errorf("transform: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordTransform(time.Since(start).Seconds())
	}

	// Keep only the rows being scored, in combined-panel order.
	scored := &features.FeatureFrame{}
	scoredPanel := &dataset.Panel{Exog: combined.Exog}
	for i, r := range combined.Records {
		if mark[keyOf(r)] {
			scored.Rows = append(scored.Rows, frame.Rows[i])
			scoredPanel.Records = append(scoredPanel.Records, r)
		}
	}

	scored, scoredPanel, dropped := features.DropIncomplete(scored, scoredPanel, p.artifacts.RequiredLagColumns())
	if len(scored.Rows) == 0 {
		return nil, dropped, &features.InsufficientHistoryError{Dropped: dropped}
	}

	start = time.Now()
	preds, err := p.model.Predict(scored.Matrix(p.artifacts.Columns()))
	if err != nil {
		return nil, dropped, fmt.Errorf("predict: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordPredict(time.Since(start).Seconds())
	}

	out := make([]storage.Prediction, len(preds))
	for i, v := range preds {
		if v < 0 {
			v = 0 // volumes cannot be negative
		}
		r := scoredPanel.Records[i]
		out[i] = storage.Prediction{Agency: r.Agency, SKU: r.SKU, Date: r.Date, Volume: v}
	}
	return out, dropped, nil
}

func (p *Predictor) snapshot(predictions []storage.Prediction, dropped int) storage.Snapshot {
	if p.metrics != nil {
		p.metrics.SetPredictionRows(len(predictions))
		p.metrics.SetRowsDropped(dropped)
		p.metrics.SetSnapshotAge(0)
	}
	return storage.Snapshot{
		Dataset:     p.dataset,
		GeneratedAt: time.Now().UTC(),
		Model:       p.model.Name(),
		RowsDropped: dropped,
		Predictions: predictions,
	}
}

// WriteCSV writes a snapshot's predictions as CSV with columns
// date, agency, sku, prediction.
func WriteCSV(path string, snapshot storage.Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "agency", "sku", "prediction"}); err != nil {
		return err
	}
	for _, pred := range snapshot.Predictions {
		row := []string{
			pred.Date.Format("2006-01-02"),
			pred.Agency,
			pred.SKU,
			strconv.FormatFloat(pred.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type recordKey struct {
	agency, sku string
	date        int64
}

func keyOf(r dataset.Record) recordKey {
	return recordKey{agency: r.Agency, sku: r.SKU, date: r.Date.Unix()}
}

func historyEntities(history []dataset.Record) []dataset.Entity {
	seen := make(map[dataset.Entity]bool)
	var out []dataset.Entity
	for _, r := range history {
		ent := dataset.Entity{Agency: r.Agency, SKU: r.SKU}
		if !seen[ent] {
			seen[ent] = true
			out = append(out, ent)
		}
	}
	return out
}

func maxRecordDate(records []dataset.Record) time.Time {
	var max time.Time
	for _, r := range records {
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return max
}

// nextPeriod advances one monthly period, normalized to the first of the
// month so irregular day-of-month values in the input cannot drift.
func nextPeriod(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
