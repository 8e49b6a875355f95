package features

import (
	"fmt"
	"time"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// Default feature configuration, matching the monthly sales panel the
// pipeline was designed around.
var (
	DefaultLags    = []int{1, 2, 3, 6, 12}
	DefaultWindows = []int{3, 6, 12}
)

// Config parameterizes the assembly pipeline. The zero value is not usable;
// call DefaultConfig.
type Config struct {
	// Lags are the lag horizons, in periods.
	Lags []int `json:"lags"`

	// Windows are the rolling-mean window lengths, in periods.
	Windows []int `json:"windows"`

	// ImputeGlobalMean fills unmatched historical-aggregate joins with the
	// training global mean instead of leaving them undefined.
	ImputeGlobalMean bool `json:"impute_global_mean"`

	// AllowUnknownEntities maps identifiers unseen at fit time to the
	// reserved sentinel code instead of failing the run.
	AllowUnknownEntities bool `json:"allow_unknown_entities"`
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Lags:    append([]int(nil), DefaultLags...),
		Windows: append([]int(nil), DefaultWindows...),
	}
}

// MaxHorizon returns the largest configured lag or window, which is how much
// trailing history an entity needs for a fully defined feature row.
func (c Config) MaxHorizon() int {
	max := 0
	for _, l := range c.Lags {
		if l > max {
			max = l
		}
	}
	for _, w := range c.Windows {
		if w > max {
			max = w
		}
	}
	return max
}

// Artifacts is the immutable learned state of a fitted pipeline: the grouped
// mean tables, the entity encoders, the trailing history window, the frozen
// exogenous schema and the feature configuration itself. It is produced by
// FitTransform, persisted alongside the model, and treated as read-only by
// every Transform call.
type Artifacts struct {
	Config    Config           `json:"config"`
	Schema    dataset.Schema   `json:"schema"`
	Means     *MeansTables     `json:"means"`
	Encoders  Encoders         `json:"encoders"`
	History   []dataset.Record `json:"history"`
	TrainedAt time.Time        `json:"trained_at"`
}

// Columns returns the canonical ordered feature column list for this
// artifacts value. The order is fixed: encoded identifiers, calendar
// features, historical means, lags, rolling means, then the schema's
// exogenous columns. Training and inference both assemble matrices from this
// list, so a mismatch is impossible by construction.
func (a *Artifacts) Columns() []string {
	cols := append([]string(nil), encodedColumns()...)
	cols = append(cols, calendarColumns()...)
	cols = append(cols, meanColumns()...)
	cols = append(cols, LagColumns(a.Config.Lags, a.Config.Windows)...)
	cols = append(cols, a.Schema.Exog...)
	return cols
}

// RequiredLagColumns returns the features whose absence disqualifies a row
// from training or prediction.
func (a *Artifacts) RequiredLagColumns() []string {
	return LagColumns(a.Config.Lags, a.Config.Windows)
}

// FitTransform runs the full assembly on a training panel: calendar
// features, historical aggregates (fit), lag/rolling features, and entity
// encoding (fit). It returns the feature frame aligned with the panel and
// the frozen artifacts that make the transform repeatable.
//
// The panel must already be normalized (sorted, schema applied).
func FitTransform(panel *dataset.Panel, cfg Config, schema dataset.Schema) (*FeatureFrame, *Artifacts, error) {
	if panel.Len() == 0 {
		return nil, nil, &dataset.SchemaError{Reason: "cannot fit feature pipeline on an empty panel"}
	}

	a := &Artifacts{
		Config:    cfg,
		Schema:    schema,
		Means:     FitMeans(panel),
		History:   TrailingHistory(panel, cfg.MaxHorizon()),
		TrainedAt: time.Now().UTC(),
	}

	var encOpts []EncoderOption
	if cfg.AllowUnknownEntities {
		encOpts = append(encOpts, WithUnknownCode())
	}
	a.Encoders = Encoders{
		Agency: FitEncoder(dataset.ColAgency, agencyValues(panel), encOpts...),
		SKU:    FitEncoder(dataset.ColSKU, skuValues(panel), encOpts...),
	}

	frame, err := assemble(panel, a)
	if err != nil {
		return nil, nil, err
	}
	return frame, a, nil
}

// Transform runs the assembly on any panel using previously learned
// artifacts. The artifacts are read-only: no statistic is recomputed from
// the panel being transformed.
func Transform(panel *dataset.Panel, a *Artifacts) (*FeatureFrame, error) {
	if panel.Len() == 0 {
		return nil, &dataset.SchemaError{Reason: "cannot transform an empty panel"}
	}
	return assemble(panel, a)
}

func assemble(panel *dataset.Panel, a *Artifacts) (*FeatureFrame, error) {
	if !panel.IsSorted() {
		return nil, &dataset.SchemaError{Reason: "panel must be sorted by (agency, sku, date) before feature assembly"}
	}

	frame := &FeatureFrame{Rows: make([]map[string]float64, panel.Len())}
	for i, r := range panel.Records {
		row := CalendarFeatures(r.Date)
		for _, c := range a.Schema.Exog {
			if v, ok := r.Exog[c]; ok {
				row[c] = v
			}
		}
		frame.Rows[i] = row
	}

	a.Means.AddMeanFeatures(frame, panel, a.Config.ImputeGlobalMean)

	if err := AddLagFeatures(frame, panel, a.Config.Lags, a.Config.Windows); err != nil {
		return nil, err
	}

	for i, r := range panel.Records {
		code, err := a.Encoders.Agency.Encode(r.Agency)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		frame.Rows[i][FeatAgencyEncoded] = float64(code)

		code, err = a.Encoders.SKU.Encode(r.SKU)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		frame.Rows[i][FeatSKUEncoded] = float64(code)
	}

	return frame, nil
}

func agencyValues(p *dataset.Panel) []string {
	out := make([]string, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Agency
	}
	return out
}

func skuValues(p *dataset.Panel) []string {
	out := make([]string, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.SKU
	}
	return out
}
