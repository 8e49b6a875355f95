// Package main implements the salescast training pipeline orchestration.
//
// This file contains the Trainer type which runs the batch pipeline:
//
//	load → split → fit features → train model → evaluate → persist
//
// The feature statistics learned during the fit step (historical means,
// entity encoders, trailing history, frozen schema) are persisted next to
// the model so that prediction runs reproduce the exact training-time
// features.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/HatiCode/salescast/cmd/trainer/config"
	"github.com/HatiCode/salescast/pkg/adapters"
	"github.com/HatiCode/salescast/pkg/artifacts"
	"github.com/HatiCode/salescast/pkg/dataset"
	"github.com/HatiCode/salescast/pkg/evaluation"
	"github.com/HatiCode/salescast/pkg/features"
	"github.com/HatiCode/salescast/pkg/models"
)

// Trainer orchestrates one training run.
type Trainer struct {
	cfg    *config.Config
	source adapters.Source
	logger *slog.Logger
}

// NewTrainer creates a new Trainer.
func NewTrainer(cfg *config.Config, source adapters.Source, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{cfg: cfg, source: source, logger: logger}
}

// Run executes the full training pipeline.
func (t *Trainer) Run(ctx context.Context) error {
	panel, err := t.load(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	schema := dataset.FitSchema(panel)
	schema.Apply(panel)
	if len(schema.Dropped) > 0 {
		t.logger.Info("dropped constant columns", "columns", schema.Dropped)
	}

	cutoff, err := t.cutoff(panel)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	train, test, err := dataset.SplitAt(panel, cutoff)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	t.logger.Info("temporal split",
		"cutoff", cutoff.Format("2006-01-02"),
		"train_rows", train.Len(),
		"test_rows", test.Len(),
	)

	featCfg, err := t.featureConfig()
	if err != nil {
		return fmt.Errorf("feature config: %w", err)
	}

	// Statistics are fitted on the training partition only. Lag features for
	// the holdout are then assembled over the full series so early holdout
	// rows keep their backward-looking context; the target itself is never
	// part of any feature.
	start := time.Now()
	trainFrame, arts, err := features.FitTransform(train, featCfg, schema)
	if err != nil {
		return fmt.Errorf("fit features: %w", err)
	}
	fullFrame, err := features.Transform(panel, arts)
	if err != nil {
		return fmt.Errorf("transform holdout features: %w", err)
	}
	testFrame := &features.FeatureFrame{}
	for i, r := range panel.Records {
		if !r.Date.Before(cutoff) {
			testFrame.Rows = append(testFrame.Rows, fullFrame.Rows[i])
		}
	}
	t.logger.Info("feature engineering complete",
		"columns", len(arts.Columns()),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	required := arts.RequiredLagColumns()
	trainFrame, train, droppedTrain := features.DropIncomplete(trainFrame, train, required)
	testFrame, test, droppedTest := features.DropIncomplete(testFrame, test, required)
	t.logger.Info("dropped rows with insufficient lag history",
		"train", droppedTrain, "test", droppedTest)
	if trainFrame == nil || len(trainFrame.Rows) == 0 {
		return &features.InsufficientHistoryError{Dropped: droppedTrain}
	}
	if len(testFrame.Rows) == 0 {
		return &features.InsufficientHistoryError{Dropped: droppedTest}
	}

	cols := arts.Columns()
	X := trainFrame.Matrix(cols)
	y := targets(train)
	evalX := testFrame.Matrix(cols)
	evalY := targets(test)

	model := models.NewGBTRegressor(models.GBTParams{
		Rounds:              t.cfg.Rounds,
		LearningRate:        t.cfg.LearningRate,
		MaxDepth:            t.cfg.MaxDepth,
		MinChildSamples:     t.cfg.MinChildSamples,
		Subsample:           t.cfg.Subsample,
		EarlyStoppingRounds: t.cfg.EarlyStopping,
		Seed:                t.cfg.Seed,
	})

	t.logger.Info("training model", "model", model.Name(), "rows", len(X), "features", len(cols))
	start = time.Now()
	if err := model.Fit(ctx, X, y, &models.EvalSet{X: evalX, Y: evalY}); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	t.logger.Info("model trained",
		"best_iteration", model.BestIteration,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := t.evaluate(model, testFrame, evalX, evalY, cols); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	if err := models.Save(t.cfg.ModelOutput, model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := artifacts.Save(t.cfg.ArtifactsOutput, arts); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	t.logger.Info("saved outputs",
		"model", t.cfg.ModelOutput,
		"artifacts", t.cfg.ArtifactsOutput,
	)
	return nil
}

func (t *Trainer) load(ctx context.Context) (*dataset.Panel, error) {
	start := time.Now()
	table, err := t.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	panel, err := dataset.Normalize(table, dataset.NormalizeOptions{})
	if err != nil {
		return nil, err
	}

	t.logger.Info("loaded panel",
		"source", t.source.Name(),
		"rows", panel.Len(),
		"agencies", len(panel.Agencies()),
		"skus", len(panel.SKUs()),
		"date_min", panel.MinDate().Format("2006-01-02"),
		"date_max", panel.MaxDate().Format("2006-01-02"),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return panel, nil
}

func (t *Trainer) cutoff(panel *dataset.Panel) (time.Time, error) {
	if t.cfg.TestDate != "" {
		return time.Parse("2006-01-02", t.cfg.TestDate)
	}
	return dataset.CutoffPeriodsBeforeMax(panel, t.cfg.TestPeriods), nil
}

func (t *Trainer) featureConfig() (features.Config, error) {
	lags, err := config.ParseIntList(t.cfg.Lags)
	if err != nil {
		return features.Config{}, fmt.Errorf("invalid lags %q: %w", t.cfg.Lags, err)
	}
	windows, err := config.ParseIntList(t.cfg.Windows)
	if err != nil {
		return features.Config{}, fmt.Errorf("invalid windows %q: %w", t.cfg.Windows, err)
	}
	return features.Config{
		Lags:                 lags,
		Windows:              windows,
		ImputeGlobalMean:     t.cfg.ImputeGlobalMean,
		AllowUnknownEntities: t.cfg.AllowUnknown,
	}, nil
}

// evaluate reports holdout metrics for the model and for the
// historical-mean baseline, followed by feature importances.
func (t *Trainer) evaluate(model *models.GBTRegressor, testFrame *features.FeatureFrame, X [][]float64, y []float64, cols []string) error {
	pred, err := model.Predict(X)
	if err != nil {
		return err
	}

	modelMetrics, err := evaluation.Compute(y, pred)
	if err != nil {
		return err
	}

	report := evaluation.Report{Model: modelMetrics}

	// Baseline: predict the historical (agency, sku, month) mean. Rows whose
	// aggregate never matched have no baseline prediction and are skipped.
	var baseTruth, basePred []float64
	for i, row := range testFrame.Rows {
		if v, ok := row[features.FeatMeanAgencySKUMonth]; ok {
			baseTruth = append(baseTruth, y[i])
			basePred = append(basePred, v)
		}
	}
	if len(baseTruth) > 0 {
		baseMetrics, err := evaluation.Compute(baseTruth, basePred)
		if err != nil {
			return err
		}
		report.Baseline = &baseMetrics
	}

	t.logger.Info("model evaluation",
		"mae", fmt.Sprintf("%.2f", report.Model.MAE),
		"rmse", fmt.Sprintf("%.2f", report.Model.RMSE),
		"mape", fmt.Sprintf("%.2f%%", report.Model.MAPE),
	)
	if report.Baseline != nil {
		t.logger.Info("baseline evaluation",
			"mae", fmt.Sprintf("%.2f", report.Baseline.MAE),
			"rmse", fmt.Sprintf("%.2f", report.Baseline.RMSE),
			"mape", fmt.Sprintf("%.2f%%", report.Baseline.MAPE),
		)
		imp := report.Improvements()
		t.logger.Info("improvement over baseline",
			"mae_pct", fmt.Sprintf("%.1f", imp["mae"]),
			"rmse_pct", fmt.Sprintf("%.1f", imp["rmse"]),
			"mape_pct", fmt.Sprintf("%.1f", imp["mape"]),
		)
	}

	type featImp struct {
		name  string
		score float64
	}
	scores := model.FeatureImportances()
	ranked := make([]featImp, len(cols))
	for i, c := range cols {
		ranked[i] = featImp{name: c, score: scores[i]}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	top := ranked
	if len(top) > 10 {
		top = top[:10]
	}
	for _, fi := range top {
		t.logger.Info("feature importance", "feature", fi.name, "score", fmt.Sprintf("%.4f", fi.score))
	}
	return nil
}

func targets(p *dataset.Panel) []float64 {
	out := make([]float64, p.Len())
	for i, r := range p.Records {
		out[i] = r.Volume
	}
	return out
}
